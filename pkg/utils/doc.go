/*
Package utils provides the VFS core's logging facilities: a leveled
LogLevel enum (TRACE through FATAL), a StructuredLogger that writes
text or JSON entries carrying context fields and an optional caller/stack
trace, and a LogRotator that rotates and (optionally) compresses log
files by size or age.

	logger, _ := utils.NewStructuredLogger(&utils.StructuredLoggerConfig{
		Level:  utils.INFO,
		Output: os.Stdout,
		Format: utils.FormatJSON,
		Rotation: &utils.RotationConfig{
			Filename:   "/var/log/vfscore/vfscore.log",
			MaxSize:    100,
			MaxBackups: 5,
			Compress:   true,
		},
	})
	defer logger.Close()

	mounted := logger.WithComponent("s3fs")
	mounted.Info("backend mounted", map[string]interface{}{"bucket": "assets"})
*/
package utils
