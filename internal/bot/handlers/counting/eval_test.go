package counting

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsExpression(t *testing.T) {
	t.Parallel()

	assert.True(t, IsExpression("42"))
	assert.True(t, IsExpression("6 * 7"))
	assert.True(t, IsExpression("(84 / 2) % 100"))
	assert.True(t, IsExpression("-3 + 45"))

	assert.False(t, IsExpression(""))
	assert.False(t, IsExpression("forty two"))
	assert.False(t, IsExpression("42!"))
	assert.False(t, IsExpression("1 + one"))
}

func TestEvaluate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		expr string
		want float64
	}{
		{"42", 42},
		{"6 * 7", 42},
		{"2 + 2 * 2", 6},
		{"(2 + 2) * 2", 8},
		{"10 - 3 - 4", 3},
		{"84 / 2", 42},
		{"7 % 5", 2},
		{"-5 + 10", 5},
		{"--4", 4},
		{"2.5 * 4", 10},
		{"((1))", 1},
		{" 1 +  1 ", 2},
	}
	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			t.Parallel()

			got, err := Evaluate(tt.expr)
			require.NoError(t, err)
			assert.InDelta(t, tt.want, got, 1e-9)
		})
	}
}

func TestEvaluateErrors(t *testing.T) {
	t.Parallel()

	for _, expr := range []string{"", "1 +", "* 2", "(1 + 2", "1 2", "1..2", "."} {
		t.Run(expr, func(t *testing.T) {
			t.Parallel()

			_, err := Evaluate(expr)
			require.ErrorIs(t, err, ErrBadExpression)
		})
	}

	_, err := Evaluate("1 / 0")
	require.ErrorIs(t, err, ErrDivisionByZero)

	_, err = Evaluate("5 % 0")
	require.ErrorIs(t, err, ErrDivisionByZero)
}
