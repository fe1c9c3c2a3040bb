package models

import (
	"encoding/json"
	"fmt"
	"time"

	"gorm.io/datatypes"

	"github.com/termfx/sift/core"
)

// Configuration is a stored, named search. Names are unique per scope.
type Configuration struct {
	ID    string `gorm:"primaryKey;type:varchar(36)"`
	Scope string `gorm:"type:varchar(255);not null;default:'';uniqueIndex:idx_configurations_scope_name"`
	Name  string `gorm:"type:varchar(255);not null;uniqueIndex:idx_configurations_scope_name"`

	Description string `gorm:"type:text"`

	// Search options
	Language    string         `gorm:"type:varchar(50);not null"`
	Pattern     string         `gorm:"type:text;not null"`
	Loose       bool           `gorm:"default:false"`
	Constraints datatypes.JSON `gorm:"type:json"` // []core.Constraint

	CreatedAt time.Time `gorm:"autoCreateTime"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`
}

// SearchRun records one executed search
type SearchRun struct {
	ID    string `gorm:"primaryKey;type:varchar(36)"`
	Scope string `gorm:"type:varchar(255);index"`

	Language string `gorm:"type:varchar(50)"`
	Pattern  string `gorm:"type:text"`
	Root     string `gorm:"type:text"`

	// Statistics
	FilesScanned int `gorm:"default:0"`
	Matches      int `gorm:"default:0"`
	Errors       int `gorm:"default:0"`

	StartedAt  time.Time `gorm:"index"`
	DurationMS int64
}

// TableName customizations for cleaner names
func (Configuration) TableName() string { return "configurations" }
func (SearchRun) TableName() string     { return "search_runs" }

// FromCore converts a core configuration into its row form. The ID is left
// for the store to assign.
func FromCore(c core.Configuration) (Configuration, error) {
	constraints := c.Options.Constraints
	if constraints == nil {
		constraints = []core.Constraint{}
	}
	raw, err := json.Marshal(constraints)
	if err != nil {
		return Configuration{}, fmt.Errorf("failed to encode constraints: %w", err)
	}
	return Configuration{
		Scope:       c.Scope,
		Name:        c.Name,
		Description: c.Description,
		Language:    c.Options.Language,
		Pattern:     c.Options.Pattern,
		Loose:       c.Options.Loose,
		Constraints: datatypes.JSON(raw),
	}, nil
}

// ToCore converts a row back into a core configuration.
func (m Configuration) ToCore() (core.Configuration, error) {
	var constraints []core.Constraint
	if len(m.Constraints) > 0 {
		if err := json.Unmarshal(m.Constraints, &constraints); err != nil {
			return core.Configuration{}, fmt.Errorf("failed to decode constraints of %s: %w", m.Name, err)
		}
	}
	if len(constraints) == 0 {
		constraints = nil
	}
	return core.Configuration{
		Name:        m.Name,
		Scope:       m.Scope,
		Description: m.Description,
		Options: core.SearchOptions{
			Pattern:     m.Pattern,
			Loose:       m.Loose,
			Language:    m.Language,
			Constraints: constraints,
		},
	}, nil
}
