package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSplitAmount(t *testing.T) {
	tests := []struct {
		name           string
		total          int64
		rate           float64
		wantCommission int64
		wantSeller     int64
	}{
		{"ровное деление", 100000, 0.20, 20000, 80000},
		{"типичный заказ", 150000, 0.20, 30000, 120000},
		{"округление вверх", 101, 0.015, 2, 99},
		{"округление вниз", 103, 0.014, 1, 102},
		{"минимальная сумма", 1, 0.20, 0, 1},
		{"нулевая комиссия", 50000, 0, 0, 50000},
		{"комиссия ограничена суммой", 100, 1.5, 100, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			commission, seller := SplitAmount(tt.total, tt.rate)
			assert.Equal(t, tt.wantCommission, commission)
			assert.Equal(t, tt.wantSeller, seller)
		})
	}
}

// Сумма долей всегда равна исходной сумме, независимо от округления.
func TestSplitAmount_PartsAlwaysSumToTotal(t *testing.T) {
	rates := []float64{0.01, 0.015, 0.1, 0.2, 0.25, 0.333, 0.5}
	totals := []int64{1, 3, 7, 99, 101, 12345, 150000, 999999999}

	for _, rate := range rates {
		for _, total := range totals {
			commission, seller := SplitAmount(total, rate)
			assert.Equal(t, total, commission+seller, "total=%d rate=%f", total, rate)
			assert.GreaterOrEqual(t, commission, int64(0))
			assert.GreaterOrEqual(t, seller, int64(0))
		}
	}
}

func TestValidRole(t *testing.T) {
	assert.True(t, ValidRole(RoleClient))
	assert.True(t, ValidRole(RoleVendor))
	assert.True(t, ValidRole(RoleAdmin))
	assert.False(t, ValidRole("superuser"))
	assert.False(t, ValidRole(""))
}

func TestSelfAssignableRole(t *testing.T) {
	assert.True(t, SelfAssignableRole(RoleClient))
	assert.True(t, SelfAssignableRole(RoleVendor))
	assert.True(t, SelfAssignableRole(RoleBureau))
	assert.False(t, SelfAssignableRole(RoleAdmin))
	assert.False(t, SelfAssignableRole("superuser"))
}
