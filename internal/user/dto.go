package user

import (
	"strconv"

	"github.com/frahmantamala/service-desk/internal"
	userDatamodel "github.com/frahmantamala/service-desk/internal/core/datamodel/user"
)

// SetActiveDTO carries the state the admin wants, not a flip of the
// current one, so submitting it twice ends in the same place.
type SetActiveDTO struct {
	Active bool
}

func ParseSetActive(raw string) (SetActiveDTO, *internal.AppError) {
	active, err := strconv.ParseBool(raw)
	if err != nil {
		return SetActiveDTO{}, internal.NewValidationFieldError("active", "Active must be true or false", internal.ErrCodeInvalidChoice)
	}
	return SetActiveDTO{Active: active}, nil
}

func (dto SetActiveDTO) ToDataModel() userDatamodel.UpdateRequest {
	active := dto.Active
	return userDatamodel.UpdateRequest{IsActive: &active}
}
