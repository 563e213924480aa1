package services

import (
	"github.com/sirupsen/logrus"
)

// SMSSender delivers a single text message
type SMSSender interface {
	SendMessage(phoneNumber, message string) error
}

// LogSMSSender is used in development when Twilio is not configured
type LogSMSSender struct {
	logger *logrus.Logger
}

func NewLogSMSSender(logger *logrus.Logger) *LogSMSSender {
	return &LogSMSSender{logger: logger}
}

func (s *LogSMSSender) SendMessage(phoneNumber, message string) error {
	s.logger.WithField("to", phoneNumber).Infof("SMS (not sent): %s", message)
	return nil
}
