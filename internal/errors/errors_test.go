package errors

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorFormatting(t *testing.T) {
	e := New(CategoryValidation, SeverityFatal, "template root not found")
	assert.Equal(t, "validation (fatal): template root not found", e.Error())

	wrapped := Wrap(fmt.Errorf("open failed"), CategoryFileSystem, SeverityError, "read config")
	assert.Equal(t, "filesystem (error): read config: open failed", wrapped.Error())
	assert.Equal(t, "open failed", wrapped.Unwrap().Error())
}

func TestCategoryAndRetryability(t *testing.T) {
	e := Retryable(CategoryConversion, SeverityError, "pandoc failed")
	assert.True(t, IsRetryable(e))
	assert.True(t, IsCategory(e, CategoryConversion))
	assert.False(t, IsCategory(e, CategoryConfig))
	assert.Equal(t, CategoryConversion, GetCategory(e))

	plain := fmt.Errorf("plain")
	assert.False(t, IsRetryable(plain))
	assert.Equal(t, CategoryInternal, GetCategory(plain))
}

func TestUnknownFormatError(t *testing.T) {
	e := UnknownFormatError("epub")
	assert.True(t, IsCategory(e, CategoryFormat))
	assert.Equal(t, "epub", e.Context["format"])
	assert.Contains(t, e.Error(), "no converter registered for format: epub")
}

func TestWithContext(t *testing.T) {
	e := ConfigError("bad config").WithContext("path", "tplbuild.yaml")
	assert.Equal(t, "tplbuild.yaml", e.Context["path"])
	assert.Equal(t, SeverityFatal, e.Severity)
}
