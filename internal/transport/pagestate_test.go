package transport_test

import (
	"net/http"
	"net/http/httptest"

	"github.com/frahmantamala/service-desk/internal/transport"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("PageState", func() {
	DescribeTable("derives the mode from the request",
		func(method, target string, want transport.Mode) {
			r := httptest.NewRequest(method, target, nil)
			Expect(transport.StateFromRequest(r).Mode).To(Equal(want))
		},
		Entry("plain GET", http.MethodGet, "/dashboard/tickets/1", transport.Viewing),
		Entry("edit mode", http.MethodGet, "/dashboard/tickets/1?mode=edit", transport.Editing),
		Entry("open dialog", http.MethodGet, "/dashboard/departments?dialog=add", transport.Editing),
		Entry("form post", http.MethodPost, "/dashboard/departments", transport.Submitting),
	)

	It("should track the navigation panel outside the mode", func() {
		r := httptest.NewRequest(http.MethodGet, "/dashboard?nav=open", nil)
		state := transport.StateFromRequest(r)
		Expect(state.NavOpen).To(BeTrue())
		Expect(state.Mode).To(Equal(transport.Viewing))
	})

	It("should reject submitting straight from viewing", func() {
		state := transport.PageState{Mode: transport.Viewing}
		_, err := state.To(transport.Submitting)
		Expect(err).To(HaveOccurred())
	})

	It("should clear the dialog when returning to viewing", func() {
		state := transport.PageState{Mode: transport.Editing, Dialog: "edit", Target: "d1"}
		next, err := state.To(transport.Viewing)
		Expect(err).NotTo(HaveOccurred())
		Expect(next.Dialog).To(BeEmpty())
		Expect(next.DialogOpen("edit")).To(BeFalse())
	})

	It("should return a failed submission to editing", func() {
		state := transport.PageState{Mode: transport.Submitting, Dialog: "add"}
		failed := state.Failed()
		Expect(failed.Mode).To(Equal(transport.Editing))
		Expect(failed.DialogOpen("add")).To(BeTrue())
	})
})
