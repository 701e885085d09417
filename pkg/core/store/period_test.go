package store

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestParsePeriodSpec_Year(t *testing.T) {
	start, end, err := ParsePeriodSpec("2024")
	require.NoError(t, err)
	require.Equal(t, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), start)
	require.Equal(t, time.Date(2024, 12, 31, 0, 0, 0, 0, time.UTC), end)
}

func TestParsePeriodSpec_Quarter(t *testing.T) {
	start, end, err := ParsePeriodSpec("2024-Q2")
	require.NoError(t, err)
	require.Equal(t, time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC), start)
	require.Equal(t, time.Date(2024, 6, 30, 0, 0, 0, 0, time.UTC), end)
}

func TestParsePeriodSpec_Month(t *testing.T) {
	start, end, err := ParsePeriodSpec("2024-02")
	require.NoError(t, err)
	require.Equal(t, time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC), start)
	require.Equal(t, time.Date(2024, 2, 29, 0, 0, 0, 0, time.UTC), end)
}

func TestParsePeriodSpec_Date(t *testing.T) {
	start, end, err := ParsePeriodSpec("2024-03-15")
	require.NoError(t, err)
	require.Equal(t, start, end)
}

func TestParsePeriodSpec_InvalidQuarter(t *testing.T) {
	_, _, err := ParsePeriodSpec("2024-Q5")
	require.Error(t, err)
}

func TestParsePeriodSpec_Garbage(t *testing.T) {
	_, _, err := ParsePeriodSpec("not-a-period")
	require.Error(t, err)
}
