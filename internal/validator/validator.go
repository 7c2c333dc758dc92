package validator

import (
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/itqan-learning/progress-service/internal/models"
)

// Validator combines struct-tag validation with content rules that tags
// cannot express (index ranges, key/item consistency).
type Validator struct {
	structValidator  *validator.Validate
	contentValidator *ContentValidator
}

// New creates a validator with the custom tags registered.
func New() *Validator {
	structValidator := validator.New()
	registerCustomValidators(structValidator)

	return &Validator{
		structValidator:  structValidator,
		contentValidator: NewContentValidator(),
	}
}

// ValidateStruct validates struct tags only.
func (v *Validator) ValidateStruct(s interface{}) error {
	return v.structValidator.Struct(s)
}

// ValidateBook checks every chapter and question in a loaded book.
func (v *Validator) ValidateBook(book *models.Book) ValidationErrors {
	return v.contentValidator.ValidateBook(book)
}

var questionIDPattern = regexp.MustCompile(`^q_\d+_\d+$`)

func registerCustomValidators(v *validator.Validate) {
	// Report json tag names instead of Go field names in errors.
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	v.RegisterValidation("question_type", func(fl validator.FieldLevel) bool {
		return models.QuestionType(fl.Field().String()).Valid()
	})

	v.RegisterValidation("question_id", func(fl validator.FieldLevel) bool {
		return questionIDPattern.MatchString(fl.Field().String())
	})
}
