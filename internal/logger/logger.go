package logger

import (
	"github.com/sirupsen/logrus"
)

// Log — общий логгер сервиса платежей.
var Log *logrus.Logger

// Init настраивает логгер с указанным уровнем. Нераспознанный
// уровень молча понижается до info.
func Init(level string) {
	Log = logrus.New()

	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		lvl = logrus.InfoLevel
	}
	Log.SetLevel(lvl)

	// По умолчанию пишем JSON, чтобы логи разбирались сборщиком.
	Log.SetFormatter(&logrus.JSONFormatter{})
}

// SetTextFormatter переключает вывод на человекочитаемый текст,
// используется при локальной разработке.
func SetTextFormatter() {
	if Log != nil {
		Log.SetFormatter(&logrus.TextFormatter{
			FullTimestamp: true,
		})
	}
}
