package department

import (
	"strings"

	"github.com/frahmantamala/service-desk/internal"
	"github.com/frahmantamala/service-desk/internal/core/common/validation"
	departmentDatamodel "github.com/frahmantamala/service-desk/internal/core/datamodel/department"
)

// DepartmentDTO backs both the add and the edit dialog.
type DepartmentDTO struct {
	Name        string
	Description string
}

func (dto *DepartmentDTO) Normalize() {
	dto.Name = strings.TrimSpace(dto.Name)
	dto.Description = strings.TrimSpace(dto.Description)
}

func (dto DepartmentDTO) Validate() *internal.AppError {
	v := validation.NewValidator()
	v.Field("name", dto.Name).Labeled("Department name").Required().MaxLength(100)
	v.Field("description", dto.Description).MaxLength(500)
	return v.Validate()
}

func (dto DepartmentDTO) ToDataModel() departmentDatamodel.WriteRequest {
	return departmentDatamodel.WriteRequest{Name: dto.Name, Description: dto.Description}
}
