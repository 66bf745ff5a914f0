package errors

import (
	stdErrors "errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEveryCodeHasMetadata(t *testing.T) {
	codes := []Code{
		CodeValidation, CodeUnauthorized, CodeForbidden, CodeNotFound, CodeConflict,
		CodeIdempotency, CodeInternal, CodeDependency, CodeRateLimit,
		CodeInsufficientStock, CodeInvalidTransition, CodeUnverifiedWebhook,
		CodeGatewayUnavailable, CodePricingInconsistency,
	}
	require.Len(t, metadataByCode, len(codes))
	for _, code := range codes {
		meta, ok := metadataByCode[code]
		require.True(t, ok, code)
		assert.NotEmpty(t, meta.PublicMessage, code)
		assert.GreaterOrEqual(t, meta.HTTPStatus, 400, code)
	}
}

func TestMetadataForDomainCodes(t *testing.T) {
	stock := MetadataFor(CodeInsufficientStock)
	assert.Equal(t, http.StatusConflict, stock.HTTPStatus)
	assert.False(t, stock.Retryable)
	assert.True(t, stock.DetailsAllowed)

	gateway := MetadataFor(CodeGatewayUnavailable)
	assert.Equal(t, http.StatusServiceUnavailable, gateway.HTTPStatus)
	assert.True(t, gateway.Retryable)

	pricing := MetadataFor(CodePricingInconsistency)
	assert.Equal(t, http.StatusUnprocessableEntity, pricing.HTTPStatus)
	assert.Equal(t, "order total does not match gateway constraints", pricing.PublicMessage)

	webhook := MetadataFor(CodeUnverifiedWebhook)
	assert.Equal(t, http.StatusUnauthorized, webhook.HTTPStatus)
	assert.False(t, webhook.DetailsAllowed)
}

func TestMetadataForUnknownCodeDefaultsToInternal(t *testing.T) {
	assert.Equal(t, http.StatusInternalServerError, MetadataFor("SOMETHING_UNKNOWN").HTTPStatus)
}

func TestErrorConstructors(t *testing.T) {
	base := New(CodeValidation, "missing foo")
	assert.Equal(t, CodeValidation, base.Code())
	assert.Equal(t, "missing foo", base.Message())
	assert.Nil(t, base.Details())
	assert.Equal(t, "VALIDATION_ERROR: missing foo", base.Error())

	base.WithDetails(map[string]any{"field": "foo"})
	assert.NotNil(t, base.Details())

	cause := stdErrors.New("boom")
	wrapped := Wrap(CodeConflict, cause, "ctx")
	assert.ErrorIs(t, wrapped, cause)
	assert.Equal(t, CodeConflict, wrapped.Code())
	assert.Equal(t, "CONFLICT: ctx: boom", wrapped.Error())

	assert.Nil(t, Wrap(CodeInternal, nil, "nothing").Unwrap())
}

func TestNilErrorIsSafe(t *testing.T) {
	var e *Error
	assert.Equal(t, CodeInternal, e.Code())
	assert.Empty(t, e.Message())
	assert.Empty(t, e.Error())
	assert.Nil(t, e.WithDetails("x"))
}

func TestCodeLookupFollowsWrappedChain(t *testing.T) {
	inner := New(CodeInsufficientStock, "sold out")
	outer := fmt.Errorf("checkout: %w", inner)

	assert.Same(t, inner, As(outer))
	assert.Nil(t, As(nil))
	assert.True(t, IsCode(outer, CodeInsufficientStock))
	assert.False(t, IsCode(outer, CodeNotFound))
	assert.False(t, IsCode(stdErrors.New("plain"), CodeInternal))

	assert.Equal(t, CodeInsufficientStock, CodeOf(outer))
	assert.Equal(t, CodeInternal, CodeOf(stdErrors.New("plain")))
	assert.False(t, Retryable(outer))
	assert.True(t, Retryable(New(CodeGatewayUnavailable, "paypal down")))
	assert.True(t, Retryable(stdErrors.New("plain")))
}
