package handler

import (
	"errors"
	"reflect"

	"github.com/go-playground/validator/v10"

	"shortlink-go/internal/apperrors"
)

// bindError 优先使用字段 msg 标签中的消息 ID，找不到时返回默认参数错误
func bindError(err error, req interface{}) *apperrors.AppError {
	var validationErrs validator.ValidationErrors
	if !errors.As(err, &validationErrs) {
		return apperrors.InvalidRequestErrorDefault()
	}

	t := reflect.TypeOf(req)
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	for _, e := range validationErrs {
		// 通过反射获取字段的 msg 标签值
		field, ok := t.FieldByName(e.StructField())
		if !ok {
			continue
		}
		if customMsg := field.Tag.Get("msg"); customMsg != "" {
			return apperrors.InvalidRequestError(customMsg)
		}
	}
	return apperrors.InvalidRequestErrorDefault()
}
