package errors

import (
	stderrors "errors"
	"testing"

	"github.com/stretchr/testify/suite"
)

type ErrorsTestSuite struct {
	suite.Suite
}

func TestErrorsSuite(t *testing.T) {
	suite.Run(t, new(ErrorsTestSuite))
}

func (suite *ErrorsTestSuite) TestNew() {
	err := New(ErrCodeInvalidSettings, "invalid settings")
	suite.Equal(ErrCodeInvalidSettings, err.Code)
	suite.Contains(err.Error(), "invalid settings")
	suite.Nil(err.Cause)
}

func (suite *ErrorsTestSuite) TestNewf() {
	err := Newf(ErrCodeStaleQuote, "no fresh quote for %s on %s", "BTCUSDT", "binance")
	suite.Contains(err.Error(), "no fresh quote for BTCUSDT on binance")
}

func (suite *ErrorsTestSuite) TestWrapUnwrap() {
	cause := stderrors.New("boom")
	err := Wrap(ErrCodeConfigParse, "failed to parse config", cause)

	suite.Contains(err.Error(), "failed to parse config")
	suite.Contains(err.Error(), "boom")
	suite.True(Is(err, cause))
}

func (suite *ErrorsTestSuite) TestGetCode() {
	err := New(ErrCodeOrderRejected, "rejected")
	suite.Equal(ErrCodeOrderRejected, GetCode(err))

	// Wrapped errors still report the outermost code
	wrapped := Wrap(ErrCodeBuyLegFailed, "buy leg", err)
	suite.Equal(ErrCodeBuyLegFailed, GetCode(wrapped))

	// Non-structured errors report unknown
	suite.Equal(ErrCodeUnknown, GetCode(stderrors.New("plain")))
}

func (suite *ErrorsTestSuite) TestHasCode() {
	err := New(ErrCodeDailyLimitReached, "limit")
	suite.True(HasCode(err, ErrCodeDailyLimitReached))
	suite.False(HasCode(err, ErrCodeDrawdownBreached))
}
