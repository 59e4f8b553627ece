package model

import (
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"
)

// Typed request payloads. Known request types get their payload validated
// at the boundary; unknown types keep the raw JSON as-is so new form
// schemas do not require a release.

// ChangeRequestData is the payload of an "IT Change Request".
type ChangeRequestData struct {
	ChangeType         string `json:"change_type" binding:"required,oneof=hardware software network other"`
	Priority           string `json:"priority" binding:"required,oneof=low medium high critical"`
	ImplementationDate string `json:"implementation_date" binding:"required"`
	Impact             string `json:"impact" binding:"required,min=10"`
	RollbackPlan       string `json:"rollback_plan" binding:"required,min=10"`
}

// AssetRequestData is the payload of an "Asset Request".
type AssetRequestData struct {
	AssetName     string          `json:"asset_name" binding:"required"`
	Quantity      int             `json:"quantity" binding:"required,min=1"`
	EstimatedCost decimal.Decimal `json:"estimated_cost"`
	Justification string          `json:"justification" binding:"required,min=10"`
}

// ValidateRequestData checks the raw payload against the typed schema for
// the given request type name. Unknown type names pass through untouched.
func ValidateRequestData(typeName string, raw json.RawMessage) error {
	switch typeName {
	case RequestTypeChange:
		var data ChangeRequestData
		if err := json.Unmarshal(raw, &data); err != nil {
			return fmt.Errorf("malformed change request data: %w", err)
		}
		return data.Validate()
	case RequestTypeAsset:
		var data AssetRequestData
		if err := json.Unmarshal(raw, &data); err != nil {
			return fmt.Errorf("malformed asset request data: %w", err)
		}
		return data.Validate()
	default:
		return nil
	}
}

func (d ChangeRequestData) Validate() error {
	switch d.ChangeType {
	case "hardware", "software", "network", "other":
	default:
		return fmt.Errorf("invalid change_type %q", d.ChangeType)
	}
	switch d.Priority {
	case "low", "medium", "high", "critical":
	default:
		return fmt.Errorf("invalid priority %q", d.Priority)
	}
	if d.ImplementationDate == "" {
		return fmt.Errorf("implementation_date is required")
	}
	if len(d.Impact) < 10 {
		return fmt.Errorf("impact description must be at least 10 characters")
	}
	if len(d.RollbackPlan) < 10 {
		return fmt.Errorf("rollback plan must be at least 10 characters")
	}
	return nil
}

func (d AssetRequestData) Validate() error {
	if d.AssetName == "" {
		return fmt.Errorf("asset_name is required")
	}
	if d.Quantity < 1 {
		return fmt.Errorf("quantity must be at least 1")
	}
	if d.EstimatedCost.IsNegative() {
		return fmt.Errorf("estimated_cost must not be negative")
	}
	if len(d.Justification) < 10 {
		return fmt.Errorf("justification must be at least 10 characters")
	}
	return nil
}
