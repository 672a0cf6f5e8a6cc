package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTypeFamily(t *testing.T) {
	tests := []struct {
		actionType string
		family     string
	}{
		{ActionTypeOrder, FamilyOrder},
		{ActionTypePrice, FamilyMarkdown},
		{ActionTypeReturn, FamilyMarkdown},
		{ActionTypeTransfer, ActionTypeTransfer},
		{ActionTypeDisposal, ActionTypeDisposal},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.family, TypeFamily(tt.actionType), tt.actionType)
	}

	// transfer and disposal must not share a family with order, or a
	// pending transfer would block new reorder recommendations
	assert.NotEqual(t, FamilyOrder, TypeFamily(ActionTypeTransfer))
	assert.NotEqual(t, FamilyOrder, TypeFamily(ActionTypeDisposal))
}
