package log

import (
	"fmt"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	// Logger is a no-op until InitLogger is called, so library packages can log unconditionally.
	Logger = zap.NewNop().Sugar()
)

func InitLogger() {
	_ = InitLoggerWithLevel("debug")
}

// InitLoggerWithLevel installs a console logger writing to stdout at the given level.
func InitLoggerWithLevel(level string) error {
	var lvl zapcore.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		return fmt.Errorf("cannot InitLogger: %w", err)
	}
	writeSyncer := getLogWriter()
	encoder := getEncoder()
	core := zapcore.NewCore(encoder, zapcore.NewMultiWriteSyncer(writeSyncer...), lvl)
	Logger = zap.New(core, zap.AddCaller()).Sugar()
	Logger.Debugf("logger enabled at level %s", lvl)
	return nil
}

func getEncoder() zapcore.Encoder {
	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	return zapcore.NewConsoleEncoder(encoderConfig)
}

func getLogWriter() []zapcore.WriteSyncer {
	writes := []zapcore.WriteSyncer{zapcore.AddSync(os.Stdout)}
	return writes
}

func ErrPanic(err error, logger *zap.SugaredLogger) {
	if err != nil {
		logger.Panic(err)
	}
}
