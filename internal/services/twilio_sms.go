package services

import (
	"errors"
	"fmt"
	"regexp"

	"github.com/sirupsen/logrus"
	"github.com/twilio/twilio-go"
	twilioApi "github.com/twilio/twilio-go/rest/api/v2010"

	"github.com/stitts-dev/nhl-cortex/internal/providers"
)

const twilioServiceName = "twilio"

var (
	nonPhoneChars = regexp.MustCompile(`[^\d+]`)
	tenDigits     = regexp.MustCompile(`^\d{10}$`)
	e164          = regexp.MustCompile(`^\+[1-9]\d{1,14}$`)

	ErrInvalidPhoneNumber = errors.New("invalid phone number format")
)

// twilioMessageAPI is satisfied by the twilio-go v2010 ApiService
type twilioMessageAPI interface {
	CreateMessage(params *twilioApi.CreateMessageParams) (*twilioApi.ApiV2010Message, error)
}

// TwilioSMSService implements SMSSender using Twilio
type TwilioSMSService struct {
	api         twilioMessageAPI
	fromNumber  string
	logger      *logrus.Logger
	breakers    *providers.CircuitBreakerService
	rateLimiter RateLimiter
}

func NewTwilioSMSService(accountSID, authToken, fromNumber string, breakers *providers.CircuitBreakerService, rateLimiter RateLimiter, logger *logrus.Logger) *TwilioSMSService {
	client := twilio.NewRestClientWithParams(twilio.ClientParams{
		Username: accountSID,
		Password: authToken,
	})

	return &TwilioSMSService{
		api:         client.Api,
		fromNumber:  fromNumber,
		logger:      logger,
		breakers:    breakers,
		rateLimiter: rateLimiter,
	}
}

func (s *TwilioSMSService) SendMessage(phoneNumber, message string) error {
	to, err := NormalizePhoneNumber(phoneNumber)
	if err != nil {
		return err
	}

	if s.rateLimiter != nil {
		if err := s.rateLimiter.Allow(to); err != nil {
			s.logger.WithField("to", to).Warn("SMS rate limited")
			return err
		}
	}

	params := &twilioApi.CreateMessageParams{}
	params.SetTo(to)
	params.SetFrom(s.fromNumber)
	params.SetBody(message)

	result, err := s.breakers.Execute(twilioServiceName, func() (interface{}, error) {
		return s.api.CreateMessage(params)
	})
	if err != nil {
		s.logger.WithField("to", to).Errorf("Twilio API error: %v", err)
		return mapTwilioError(err)
	}

	if resp, ok := result.(*twilioApi.ApiV2010Message); ok && resp != nil && resp.Sid != nil {
		s.logger.WithField("sid", *resp.Sid).Debug("SMS sent")
	}
	return nil
}

// NormalizePhoneNumber converts a number to E.164, assuming +1 for bare
// ten-digit numbers
func NormalizePhoneNumber(phone string) (string, error) {
	cleaned := nonPhoneChars.ReplaceAllString(phone, "")

	if len(cleaned) == 0 || cleaned[0] != '+' {
		if !tenDigits.MatchString(cleaned) {
			return "", ErrInvalidPhoneNumber
		}
		cleaned = "+1" + cleaned
	}

	if !e164.MatchString(cleaned) {
		return "", ErrInvalidPhoneNumber
	}
	return cleaned, nil
}

var twilioErrorPatterns = []struct {
	re  *regexp.Regexp
	msg string
}{
	{regexp.MustCompile(`(?i)invalid.*phone.*number`), "invalid phone number"},
	{regexp.MustCompile(`(?i)unverified.*number`), "phone number not verified for trial account"},
	{regexp.MustCompile(`(?i)insufficient.*funds`), "SMS service temporarily unavailable"},
	{regexp.MustCompile(`(?i)rate.*limit`), "too many SMS requests, please try again later"},
	{regexp.MustCompile(`(?i)blocked.*number`), "unable to send SMS to this number"},
}

func mapTwilioError(err error) error {
	for _, p := range twilioErrorPatterns {
		if p.re.MatchString(err.Error()) {
			return fmt.Errorf("%s: %w", p.msg, err)
		}
	}
	return fmt.Errorf("failed to send SMS: %w", err)
}
