package configs

import "gopkg.in/yaml.v3"

// DecorateConfigNode 将硬编码的中文注释注入到配置节点树中。
func DecorateConfigNode(node *yaml.Node) {
	if node.Kind != yaml.DocumentNode || len(node.Content) == 0 {
		return
	}
	root := node.Content[0]
	if root.Kind != yaml.MappingNode {
		return
	}

	root.HeadComment = `# 这个配置文件内的注释是自动生成的，请不要手动修改。
# 需要修改注释时，请在 src/configs/config_comments.go 文件内修改。`

	setFieldLineComment(root, "app_data_path", "# 数据库文件及其备份所在目录")

	setFieldHeadComment(root, "database", "# 本地 SQLite 数据库配置")
	if dbNode := findNode(root, "database"); dbNode != nil {
		setFieldLineComment(dbNode, "file", "# 只能是文件名")
		setFieldComment(dbNode, "journal_mode", "# 可选值: DELETE, TRUNCATE, PERSIST, MEMORY, WAL, OFF", "")
		setFieldComment(dbNode, "synchronous", "# 可选值: OFF, NORMAL, FULL, EXTRA", "")
		setFieldComment(dbNode, "verify_checksums",
			`# 启动时校验已应用迁移的脚本内容是否被修改
# 被修改时拒绝启动，防止数据库结构与程序预期不一致`, "")
	}

	setFieldHeadComment(root, "backup", "# 升级已有数据库前自动备份（VACUUM INTO），保留最近 max_count 份")

	setFieldHeadComment(root, "metrics", "# 指标导出")
	if metricsNode := findNode(root, "metrics"); metricsNode != nil {
		setFieldComment(metricsNode, "textfile_path",
			"# Prometheus textfile 输出路径，留空则不导出（可配合 node_exporter 使用）", "")
	}

	setFieldHeadComment(root, "sentry", "# Sentry 错误监控配置（用于收集崩溃日志）")
	if sentryNode := findNode(root, "sentry"); sentryNode != nil {
		setFieldComment(sentryNode, "enable", "# 是否启用 Sentry 错误监控", "")
		setFieldComment(sentryNode, "dsn", "# Sentry DSN，留空则禁用。申请地址：https://sentry.io/", "")
		setFieldComment(sentryNode, "environment", "# 环境标识：production 或 development", "")
	}
}

func findNode(mapNode *yaml.Node, key string) *yaml.Node {
	for i := 0; i+1 < len(mapNode.Content); i += 2 {
		if mapNode.Content[i].Value == key {
			return mapNode.Content[i+1]
		}
	}
	return nil
}

func findKey(mapNode *yaml.Node, key string) *yaml.Node {
	for i := 0; i+1 < len(mapNode.Content); i += 2 {
		if mapNode.Content[i].Value == key {
			return mapNode.Content[i]
		}
	}
	return nil
}

func setFieldComment(mapNode *yaml.Node, key, headComment, lineComment string) {
	k := findKey(mapNode, key)
	if k == nil {
		return
	}
	if headComment != "" {
		k.HeadComment = headComment
	}
	if lineComment != "" {
		k.LineComment = lineComment
	}
}

func setFieldLineComment(mapNode *yaml.Node, key, lineComment string) {
	setFieldComment(mapNode, key, "", lineComment)
}

func setFieldHeadComment(mapNode *yaml.Node, key, headComment string) {
	setFieldComment(mapNode, key, headComment, "")
}
