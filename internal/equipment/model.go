// Package equipment provides the equipment inventory, its categories and its maintenance history.
package equipment

import (
	"time"

	"github.com/evcraddock/churchdesk/internal/duedate"
	"github.com/evcraddock/churchdesk/internal/validate"
)

// Status is the physical condition of an asset.
type Status string

const (
	Good           Status = "good"
	NeedsAttention Status = "needs_attention"
	Damaged        Status = "damaged"
	Operational    Status = "operational"
	UnderRepair    Status = "under_repair"
	Retired        Status = "retired"
)

// ValidStatuses is the set of allowed asset statuses.
var ValidStatuses = []Status{Good, NeedsAttention, Damaged, Operational, UnderRepair, Retired}

// IsValid checks if an asset status is recognized.
func (s Status) IsValid() bool {
	for _, v := range ValidStatuses {
		if s == v {
			return true
		}
	}
	return false
}

// Label returns a human-readable label for the status.
func (s Status) Label() string {
	switch s {
	case Good:
		return "Good"
	case NeedsAttention:
		return "Needs Attention"
	case Damaged:
		return "Damaged"
	case Operational:
		return "Operational"
	case UnderRepair:
		return "Under Repair"
	case Retired:
		return "Retired"
	default:
		return string(s)
	}
}

// MaintenanceStatus is where a maintenance event stands.
type MaintenanceStatus string

const (
	Scheduled  MaintenanceStatus = "scheduled"
	InProgress MaintenanceStatus = "in_progress"
	Completed  MaintenanceStatus = "completed"
)

// ValidMaintenanceStatuses is the set of allowed maintenance statuses.
var ValidMaintenanceStatuses = []MaintenanceStatus{Scheduled, InProgress, Completed}

// IsValid checks if a maintenance status is recognized.
func (s MaintenanceStatus) IsValid() bool {
	for _, v := range ValidMaintenanceStatuses {
		if s == v {
			return true
		}
	}
	return false
}

// Label returns a human-readable label for the status.
func (s MaintenanceStatus) Label() string {
	switch s {
	case Scheduled:
		return "Scheduled"
	case InProgress:
		return "In Progress"
	case Completed:
		return "Completed"
	default:
		return string(s)
	}
}

// MaintenanceType is the kind of work done.
type MaintenanceType string

const (
	Preventive MaintenanceType = "preventive"
	Corrective MaintenanceType = "corrective"
	Inspection MaintenanceType = "inspection"
	Cleaning   MaintenanceType = "cleaning"
	Repair     MaintenanceType = "repair"
	OtherWork  MaintenanceType = "other"
)

// ValidMaintenanceTypes is the set of allowed maintenance types.
var ValidMaintenanceTypes = []MaintenanceType{Preventive, Corrective, Inspection, Cleaning, Repair, OtherWork}

// IsValid checks if a maintenance type is recognized.
func (t MaintenanceType) IsValid() bool {
	for _, v := range ValidMaintenanceTypes {
		if t == v {
			return true
		}
	}
	return false
}

// Label returns a human-readable label for the type.
func (t MaintenanceType) Label() string {
	switch t {
	case Preventive:
		return "Preventive"
	case Corrective:
		return "Corrective"
	case Inspection:
		return "Inspection"
	case Cleaning:
		return "Cleaning"
	case Repair:
		return "Repair"
	case OtherWork:
		return "Other"
	default:
		return string(t)
	}
}

// Category groups assets.
type Category struct {
	ID          int64     `db:"id" json:"id"`
	Name        string    `db:"name" json:"name"`
	Description string    `db:"description" json:"description"`
	AssetCount  int       `db:"asset_count" json:"asset_count"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}

// Asset is a tracked piece of equipment.
// NextMaintenanceDate is stored, not derived on read.
type Asset struct {
	ID                      int64            `db:"id" json:"id"`
	Code                    string           `db:"code" json:"code"`
	Name                    string           `db:"name" json:"name"`
	CategoryID              int64            `db:"category_id" json:"category_id"`
	CategoryName            string           `db:"category_name" json:"category_name"`
	Description             string           `db:"description" json:"description"`
	Location                string           `db:"location" json:"location"`
	PurchaseDate            duedate.NullDate `db:"purchase_date" json:"purchase_date"`
	PurchasePriceCents      *int64           `db:"purchase_price_cents" json:"purchase_price_cents"`
	Status                  Status           `db:"status" json:"status"`
	MaintenanceIntervalDays int              `db:"maintenance_interval_days" json:"maintenance_interval_days"`
	LastMaintenanceDate     duedate.NullDate `db:"last_maintenance_date" json:"last_maintenance_date"`
	NextMaintenanceDate     duedate.NullDate `db:"next_maintenance_date" json:"next_maintenance_date"`
	Notes                   string           `db:"notes" json:"notes"`
	CreatedBy               *int64           `db:"created_by" json:"created_by,omitempty"`
	CreatedAt               time.Time        `db:"created_at" json:"created_at"`
	UpdatedAt               time.Time        `db:"updated_at" json:"updated_at"`

	// Derived from NextMaintenanceDate by Derive.
	MaintenanceStatus duedate.Status `db:"-" json:"maintenance_status"`
	DaysUntilDue      *int           `db:"-" json:"days_until_due"`
}

// Derive fills the due status fields as of today.
func (a *Asset) Derive(today duedate.Date) {
	a.MaintenanceStatus = duedate.Classify(a.NextMaintenanceDate, today)
	a.DaysUntilDue = nil
	if days, ok := duedate.DaysUntil(a.NextMaintenanceDate, today); ok {
		a.DaysUntilDue = &days
	}
}

// PurchasePrice renders the purchase price, "" when unknown.
func (a *Asset) PurchasePrice() string {
	return validate.FormatCents(a.PurchasePriceCents)
}

// Maintenance is one maintenance event against an asset.
type Maintenance struct {
	ID                  int64             `db:"id" json:"id"`
	EquipmentID         int64             `db:"equipment_id" json:"equipment_id"`
	EquipmentCode       string            `db:"equipment_code" json:"equipment_code"`
	EquipmentName       string            `db:"equipment_name" json:"equipment_name"`
	MaintenanceDate     duedate.Date      `db:"maintenance_date" json:"maintenance_date"`
	MaintenanceType     MaintenanceType   `db:"maintenance_type" json:"maintenance_type"`
	Description         string            `db:"description" json:"description"`
	PerformedBy         string            `db:"performed_by" json:"performed_by"`
	CostCents           *int64            `db:"cost_cents" json:"cost_cents"`
	Status              MaintenanceStatus `db:"status" json:"status"`
	NextMaintenanceDate duedate.NullDate  `db:"next_maintenance_date" json:"next_maintenance_date"`
	Notes               string            `db:"notes" json:"notes"`
	CreatedBy           *int64            `db:"created_by" json:"created_by,omitempty"`
	CreatedAt           time.Time         `db:"created_at" json:"created_at"`
	UpdatedAt           time.Time         `db:"updated_at" json:"updated_at"`
}

// Cost renders the cost, "" when unknown.
func (m *Maintenance) Cost() string {
	return validate.FormatCents(m.CostCents)
}

// CategoryInput is the category form.
type CategoryInput struct {
	Name        string `form:"name" validate:"required,max=100"`
	Description string `form:"description" validate:"max=500"`
}

// AssetInput is the asset create/edit form. Maintenance dates are not
// editable here; they move only through maintenance events.
type AssetInput struct {
	Code                    string `form:"code" validate:"required,max=50,code"`
	Name                    string `form:"name" validate:"required,max=200"`
	CategoryID              string `form:"category_id" validate:"required,id"`
	Description             string `form:"description" validate:"max=2000"`
	Location                string `form:"location" validate:"max=200"`
	PurchaseDate            string `form:"purchase_date" validate:"omitempty,date"`
	PurchasePrice           string `form:"purchase_price" validate:"omitempty,money"`
	Status                  string `form:"status" validate:"omitempty,oneof=good needs_attention damaged operational under_repair retired"`
	MaintenanceIntervalDays string `form:"maintenance_interval_days" validate:"omitempty,days"`
	Notes                   string `form:"notes" validate:"max=2000"`
}

// AssetInputFrom fills a form from an existing asset, for edit pages.
func AssetInputFrom(a *Asset) AssetInput {
	return AssetInput{
		Code:                    a.Code,
		Name:                    a.Name,
		CategoryID:              itoa(a.CategoryID),
		Description:             a.Description,
		Location:                a.Location,
		PurchaseDate:            a.PurchaseDate.String(),
		PurchasePrice:           a.PurchasePrice(),
		Status:                  string(a.Status),
		MaintenanceIntervalDays: itoa(int64(a.MaintenanceIntervalDays)),
		Notes:                   a.Notes,
	}
}

// MaintenanceInput is the maintenance event form.
type MaintenanceInput struct {
	MaintenanceDate     string `form:"maintenance_date" validate:"required,date"`
	MaintenanceType     string `form:"maintenance_type" validate:"required,oneof=preventive corrective inspection cleaning repair other"`
	Description         string `form:"description" validate:"max=2000"`
	PerformedBy         string `form:"performed_by" validate:"max=200"`
	Cost                string `form:"cost" validate:"omitempty,money"`
	Status              string `form:"status" validate:"omitempty,oneof=scheduled in_progress completed"`
	NextMaintenanceDate string `form:"next_maintenance_date" validate:"omitempty,date"`
	Notes               string `form:"notes" validate:"max=2000"`
}

// MaintenanceInputFrom fills a form from an existing event, for edit pages.
func MaintenanceInputFrom(m *Maintenance) MaintenanceInput {
	return MaintenanceInput{
		MaintenanceDate:     m.MaintenanceDate.String(),
		MaintenanceType:     string(m.MaintenanceType),
		Description:         m.Description,
		PerformedBy:         m.PerformedBy,
		Cost:                m.Cost(),
		Status:              string(m.Status),
		NextMaintenanceDate: m.NextMaintenanceDate.String(),
		Notes:               m.Notes,
	}
}

// Filter narrows ListAssets.
type Filter struct {
	Search     string
	CategoryID int64
	Status     Status
	Due        duedate.Status
}
