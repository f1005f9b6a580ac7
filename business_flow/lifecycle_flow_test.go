package businessflow

import (
	"errors"
	"fmt"
	"testing"

	"github.com/videostreampro/adcore/money"
	"github.com/stretchr/testify/assert"
)

func TestTranslateWalletErr(t *testing.T) {
	t.Run("maps the ledger sentinel onto the business one", func(t *testing.T) {
		err := translateWalletErr(money.ErrInsufficientFunds)
		assert.ErrorIs(t, err, ErrInsufficientFunds)
	})
	t.Run("wrapped ledger errors still translate", func(t *testing.T) {
		wrapped := fmt.Errorf("debit failed: %w", money.ErrInsufficientFunds)
		assert.ErrorIs(t, translateWalletErr(wrapped), ErrInsufficientFunds)
	})
	t.Run("other errors pass through unchanged", func(t *testing.T) {
		other := errors.New("connection reset")
		assert.Same(t, other, translateWalletErr(other))
	})
}
