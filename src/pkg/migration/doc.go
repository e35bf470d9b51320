// Package migration 提供嵌入式 SQLite 数据库的版本化迁移执行器
//
// 主要特性：
//
// 1. 有序迁移：迁移列表按版本号严格递增，执行前校验，重复或乱序直接拒绝
// 2. 账本：schema_ledger 表记录每个已应用版本，脚本与账本记录在同一事务中提交
// 3. 幂等：版本号不大于账本最高版本的迁移一律跳过，重复启动不会重复执行
// 4. 失败即停止：任何脚本失败都会回滚该脚本并终止本次执行，后续迁移不会运行
// 5. 迁移源：通过 golang-migrate 的 iofs 驱动从 fs.FS（通常是 embed.FS）读取 *.up.sql 文件
//
// 基本使用示例：
//
//	migrations, err := migration.Load(mySource)
//	if err != nil { ... }
//
//	runner := migration.NewRunner(
//	    migration.WithLogger(logrus.WithField("db", "lending")),
//	    migration.WithBackuper(backupManager),
//	)
//	result, err := runner.Apply(ctx, handle, migrations)
package migration
