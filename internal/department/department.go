package department

import (
	"time"

	departmentDatamodel "github.com/frahmantamala/service-desk/internal/core/datamodel/department"
)

type Department struct {
	ID          string
	Name        string
	Description string
	CreatedAt   time.Time
}

func FromDataModel(d *departmentDatamodel.Department) *Department {
	return &Department{
		ID:          d.ID,
		Name:        d.Name,
		Description: d.Description,
		CreatedAt:   d.CreatedAt,
	}
}
