package comment

import (
	"strings"

	"github.com/frahmantamala/service-desk/internal"
	"github.com/frahmantamala/service-desk/internal/core/common/validation"
	commentDatamodel "github.com/frahmantamala/service-desk/internal/core/datamodel/comment"
)

type CreateCommentDTO struct {
	Message string
}

func (dto CreateCommentDTO) Validate() *internal.AppError {
	v := validation.NewValidator()
	v.Field("message", dto.Message).Labeled("Comment").Required().MaxLength(5000)
	return v.Validate()
}

func (dto CreateCommentDTO) ToDataModel() commentDatamodel.CreateRequest {
	return commentDatamodel.CreateRequest{Message: strings.TrimSpace(dto.Message)}
}
