package builtin

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseBirthDateFormats(t *testing.T) {
	cases := []string{
		"1990-05-10",
		"1990.05.10",
		"1990/05/10",
		"19900510",
		"  1990-05-10  ",
	}
	for _, in := range cases {
		got, err := parseBirthDate(in)
		require.NoError(t, err, "input %q", in)
		assert.Equal(t, "1990-05-10", got.Format("2006-01-02"), "input %q", in)
	}
}

func TestParseBirthDateRejectsGarbage(t *testing.T) {
	for _, in := range []string{"", "생일", "1990-13-40", "10-05-1990", "90510"} {
		_, err := parseBirthDate(in)
		assert.Error(t, err, "input %q", in)
	}
}

func TestAgeHandlerComputesInternationalAge(t *testing.T) {
	m := AgeModule{}
	handler := m.Handlers()["calculate_international_age"]
	require.NotNil(t, handler)

	// A birthday that has certainly passed this year.
	birth := time.Now().AddDate(-30, 0, -1)
	res, err := handler(context.Background(), map[string]any{
		"birth_date": birth.Format("2006-01-02"),
	}, nil)
	require.NoError(t, err)
	require.Len(t, res.Messages, 1)
	assert.Equal(t, "assistant", res.Messages[0].Role)
	assert.Contains(t, res.Messages[0].Content, "만 나이는 30세")
}

func TestAgeHandlerBeforeBirthdayThisYear(t *testing.T) {
	m := AgeModule{}
	handler := m.Handlers()["calculate_international_age"]

	// A birthday still ahead this year: one less than the year difference.
	birth := time.Now().AddDate(-30, 0, 7)
	res, err := handler(context.Background(), map[string]any{
		"birth_date": birth.Format("2006-01-02"),
	}, nil)
	require.NoError(t, err)
	assert.Contains(t, res.Messages[0].Content, fmt.Sprintf("만 나이는 %d세", 29))
}

func TestAgeHandlerMissingOrBadArgument(t *testing.T) {
	m := AgeModule{}
	handler := m.Handlers()["calculate_international_age"]

	res, err := handler(context.Background(), map[string]any{}, nil)
	require.NoError(t, err)
	assert.Contains(t, res.Messages[0].Content, "YYYY-MM-DD")

	res, err = handler(context.Background(), map[string]any{"birth_date": "모름"}, nil)
	require.NoError(t, err)
	assert.Contains(t, res.Messages[0].Content, "이해할 수 없습니다")
}
