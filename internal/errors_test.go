package internal_test

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/frahmantamala/service-desk/internal"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("AppError", func() {
	Describe("NewExternalError", func() {
		It("should classify a transport failure as unavailable", func() {
			err := internal.NewExternalError("Failed to load tickets", 0, errors.New("connection refused"))
			Expect(err.Code).To(Equal(internal.ErrCodeBackendUnavailable))
			Expect(err.StatusCode).To(Equal(http.StatusBadGateway))
		})

		It("should classify a backend 404 as not found", func() {
			err := internal.NewExternalError("Failed to load ticket", http.StatusNotFound, nil)
			Expect(err.Code).To(Equal(internal.ErrCodeResourceNotFound))
		})

		It("should classify other statuses as rejected", func() {
			err := internal.NewExternalError("Failed to create ticket", http.StatusBadRequest, nil)
			Expect(err.Code).To(Equal(internal.ErrCodeBackendRejected))
		})
	})

	Describe("IsAppError", func() {
		It("should find a wrapped app error", func() {
			wrapped := fmt.Errorf("loading page: %w", internal.NewContractError("unexpected ticket list shape", nil))

			appErr, ok := internal.IsAppError(wrapped)
			Expect(ok).To(BeTrue())
			Expect(appErr.Type).To(Equal(internal.ErrorTypeContract))
		})

		It("should report plain errors as not app errors", func() {
			_, ok := internal.IsAppError(errors.New("boom"))
			Expect(ok).To(BeFalse())
		})
	})

	Describe("IsUnauthorized", func() {
		It("should match the session expired error", func() {
			Expect(internal.IsUnauthorized(internal.ErrSessionExpired)).To(BeTrue())
			Expect(internal.IsUnauthorized(internal.ErrAdminOnly)).To(BeFalse())
		})
	})

	Describe("FieldErrors", func() {
		It("should index the first message per field", func() {
			appErr := internal.NewValidationError("Validation failed", internal.ErrCodeValidationFailed).
				WithDetails(internal.ValidationErrors{Errors: []internal.ValidationError{
					{Field: "title", Message: "title is required"},
					{Field: "title", Message: "title must be at least 1 characters"},
					{Field: "department", Message: "department is required"},
				}})

			fields := appErr.FieldErrors()
			Expect(fields).To(HaveLen(2))
			Expect(fields["title"]).To(Equal("title is required"))
			Expect(appErr.GetDetailedMessage()).To(ContainSubstring("department is required"))
		})
	})
})
