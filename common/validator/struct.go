package validator

import (
	stderrors "errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	playground "github.com/go-playground/validator/v10"

	apperrors "github.com/checkin-web/common/errors"
)

var (
	validate     *playground.Validate
	validateOnce sync.Once
)

// Engine returns the shared go-playground validator with the custom
// tags registered.
func Engine() *playground.Validate {
	validateOnce.Do(func() {
		v := playground.New()

		// Report the form field name so errors can be shown next to inputs.
		v.RegisterTagNameFunc(func(f reflect.StructField) string {
			name := strings.SplitN(f.Tag.Get("form"), ",", 2)[0]
			if name == "" || name == "-" {
				return f.Name
			}
			return name
		})

		_ = v.RegisterValidation("password", func(fl playground.FieldLevel) bool {
			return IsValidPassword(fl.Field().String())
		})
		_ = v.RegisterValidation("vcode", func(fl playground.FieldLevel) bool {
			return VerificationCodePattern.MatchString(fl.Field().String())
		})
		_ = v.RegisterValidation("notblank", func(fl playground.FieldLevel) bool {
			return !IsBlank(fl.Field().String())
		})

		validate = v
	})
	return validate
}

// Struct validates s with its `validate` tags and returns the first
// problem as an AppError naming the form field, or nil.
func Struct(s interface{}) error {
	err := Engine().Struct(s)
	if err == nil {
		return nil
	}

	var verrs playground.ValidationErrors
	if !stderrors.As(err, &verrs) || len(verrs) == 0 {
		return apperrors.Wrap(err, apperrors.ErrCodeValidation, "입력값을 확인해주세요")
	}

	fe := verrs[0]
	return apperrors.InvalidInput(fe.Field(), messageFor(fe))
}

func messageFor(fe playground.FieldError) string {
	label := fieldLabels[fe.Field()]
	if label == "" {
		label = fe.Field()
	}

	switch fe.Tag() {
	case "required", "notblank":
		return fmt.Sprintf("%s을(를) 입력해주세요", label)
	case "email":
		return GetEmailError(fmt.Sprint(fe.Value()))
	case "password":
		return GetPasswordError(fmt.Sprint(fe.Value()))
	case "vcode":
		return "인증 코드를 정확히 입력해주세요"
	case "eqfield":
		return "비밀번호가 일치하지 않습니다"
	case "min":
		return fmt.Sprintf("%s은(는) %s자 이상이어야 합니다", label, fe.Param())
	case "max":
		return fmt.Sprintf("%s은(는) %s자 이하여야 합니다", label, fe.Param())
	default:
		return fmt.Sprintf("%s을(를) 확인해주세요", label)
	}
}

var fieldLabels = map[string]string{
	"email":           "이메일",
	"password":        "비밀번호",
	"passwordConfirm": "비밀번호 확인",
	"name":            "이름",
	"phone":           "연락처",
	"code":            "인증 코드",
}
