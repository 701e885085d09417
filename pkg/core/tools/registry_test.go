package tools

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRegistry_CatalogHasElevenTools(t *testing.T) {
	r := NewRegistry()
	require.Len(t, r.Catalog(), 11)
}

func TestExecute_UnknownToolIsValidationError(t *testing.T) {
	r := NewRegistry()
	_, err := r.Execute(context.Background(), nil, "does_not_exist", "{}")
	require.Error(t, err)
}

func TestExecute_MissingRequiredParameter(t *testing.T) {
	r := NewRegistry()
	_, err := r.Execute(context.Background(), nil, "get_revenue_by_period", `{"start_date":"2024-01-01"}`)
	require.Error(t, err)
}

func TestExecute_InvalidEnumValue(t *testing.T) {
	r := NewRegistry()
	args := `{"start_date":"2024-01-01","end_date":"2024-01-31","source":"DialectZ"}`
	_, err := r.Execute(context.Background(), nil, "get_revenue_by_period", args)
	require.Error(t, err)
}

func TestExecute_MalformedJSON(t *testing.T) {
	r := NewRegistry()
	_, err := r.Execute(context.Background(), nil, "get_revenue_by_period", `{not json`)
	require.Error(t, err)
}

func TestValidateArgs_ArrayTypeMismatch(t *testing.T) {
	tool := Tool{
		Name:       "calculate_growth_rate",
		Parameters: []ParamSchema{{Name: "periods", Type: "array", Required: true}},
	}
	err := validateArgs(tool, map[string]interface{}{"periods": "not-an-array"})
	require.Error(t, err)
}

func TestDirectionLabel(t *testing.T) {
	require.Equal(t, "rising", directionLabel(1))
	require.Equal(t, "falling", directionLabel(-1))
	require.Equal(t, "flat", directionLabel(0))
}
