package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidate(t *testing.T) {
	v := NewValidator()

	type registerReq struct {
		Email    string  `json:"email" validate:"required,email"`
		Password string  `json:"password" validate:"required,min=8,max=72"`
		Name     string  `json:"name" validate:"required,max=100"`
		Plan     string  `json:"plan" validate:"oneof=trial basic premium"`
		Phone    *string `json:"phone" validate:"min=7"`
		Quantity int     `json:"quantity" validate:"min=1"`
	}

	valid := func() registerReq {
		return registerReq{
			Email:    "owner@example.com",
			Password: "correct horse",
			Name:     "Acme Trading",
			Plan:     "trial",
			Quantity: 1,
		}
	}

	t.Run("valid payload passes", func(t *testing.T) {
		req := valid()
		assert.NoError(t, v.Validate(&req))
	})

	t.Run("missing required field", func(t *testing.T) {
		req := valid()
		req.Email = ""
		err := v.Validate(&req)
		assert.ErrorContains(t, err, "email")
		assert.ErrorContains(t, err, "required")
	})

	t.Run("bad email format", func(t *testing.T) {
		req := valid()
		req.Email = "not-an-email"
		assert.ErrorContains(t, v.Validate(&req), "invalid email format")
	})

	t.Run("error names the json field", func(t *testing.T) {
		req := valid()
		req.Password = "short"
		assert.ErrorContains(t, v.Validate(&req), "password: minimum length is 8")
	})

	t.Run("oneof rejects unknown values", func(t *testing.T) {
		req := valid()
		req.Plan = "platinum"
		assert.ErrorContains(t, v.Validate(&req), "must be one of: trial, basic, premium")
	})

	t.Run("oneof skips empty strings", func(t *testing.T) {
		req := valid()
		req.Plan = ""
		assert.NoError(t, v.Validate(&req))
	})

	t.Run("nil pointer without required is fine", func(t *testing.T) {
		req := valid()
		req.Phone = nil
		assert.NoError(t, v.Validate(&req))
	})

	t.Run("non-nil pointer is validated through", func(t *testing.T) {
		req := valid()
		phone := "123"
		req.Phone = &phone
		assert.ErrorContains(t, v.Validate(&req), "phone: minimum length is 7")
	})

	t.Run("numeric min applies to the value", func(t *testing.T) {
		req := valid()
		req.Quantity = 0
		assert.ErrorContains(t, v.Validate(&req), "quantity: minimum is 1")
	})

	t.Run("non-struct input errors", func(t *testing.T) {
		assert.Error(t, v.Validate("hello"))
		var req *registerReq
		assert.Error(t, v.Validate(req))
	})
}
