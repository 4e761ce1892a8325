package validation

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
)

// Ключи gin-контекста с приведёнными значениями запроса.
const (
	ContextParamsKey = "validated_params"
	ContextBodyKey   = "validated_body"
)

// failedResponse повторяет форму общего envelope для ошибок валидации.
type failedResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	Data    any    `json:"data"`
}

// Middleware возвращает gin-middleware, проверяющий запрос по реестру схем.
// Неизвестные маршруты и методы пропускаются без валидации: ими займётся
// downstream-обработчик (например, not-found responder). При нарушении
// запрос завершается 422 и до бизнес-логики не доходит.
func Middleware(registry *Registry) gin.HandlerFunc {
	return func(c *gin.Context) {
		entry, ok := registry.Lookup(c.FullPath(), c.Request.Method)
		if !ok {
			c.Next()
			return
		}

		var (
			coercedParams map[string]any
			paramsErr     error
		)
		if entry.Params != nil {
			raw := make(map[string]any, len(c.Params))
			for _, param := range c.Params {
				raw[param.Key] = param.Value
			}
			coercedParams, paramsErr = entry.Params.Validate(raw)
		}

		// Ошибка тела важнее ошибки параметров, поэтому параметры
		// не прерывают запрос до проверки тела.
		if entry.Body != nil {
			raw, err := decodeBody(c.Request.Body)
			if err != nil {
				abortWithMessage(c, "Invalid request body")
				return
			}
			coerced, err := entry.Body.Validate(raw)
			if err != nil {
				abortInvalid(c, err)
				return
			}
			if paramsErr != nil {
				abortInvalid(c, paramsErr)
				return
			}
			// Подменяем тело приведённым значением, чтобы обработчики
			// декодировали уже нормализованный JSON.
			encoded, err := json.Marshal(coerced)
			if err != nil {
				abortWithMessage(c, "Invalid request body")
				return
			}
			c.Request.Body = io.NopCloser(bytes.NewReader(encoded))
			c.Request.ContentLength = int64(len(encoded))
			c.Set(ContextBodyKey, coerced)
		} else if paramsErr != nil {
			abortInvalid(c, paramsErr)
			return
		}

		if entry.Params != nil {
			c.Set(ContextParamsKey, coercedParams)
		}

		c.Next()
	}
}

// decodeBody читает тело запроса в map. Пустое тело эквивалентно пустому
// объекту: обязательные поля схемы сами сообщат об отсутствии значений.
func decodeBody(body io.ReadCloser) (map[string]any, error) {
	if body == nil {
		return map[string]any{}, nil
	}
	raw, err := io.ReadAll(body)
	if err != nil {
		return nil, err
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		return map[string]any{}, nil
	}

	decoder := json.NewDecoder(bytes.NewReader(raw))
	// UseNumber сохраняет точность и позволяет отличить целые от дробных.
	decoder.UseNumber()

	var decoded map[string]any
	if err := decoder.Decode(&decoded); err != nil {
		return nil, err
	}
	return decoded, nil
}

func abortInvalid(c *gin.Context, err error) {
	abortWithMessage(c, Normalize(err.Error()))
}

func abortWithMessage(c *gin.Context, message string) {
	c.AbortWithStatusJSON(http.StatusUnprocessableEntity, failedResponse{
		Status:  "failed",
		Message: message,
		Data:    nil,
	})
}

// Params достаёт приведённые path-параметры, сохранённые middleware.
func Params(c *gin.Context) (map[string]any, bool) {
	raw, ok := c.Get(ContextParamsKey)
	if !ok {
		return nil, false
	}
	params, ok := raw.(map[string]any)
	return params, ok
}

// Body достаёт приведённое тело запроса, сохранённое middleware.
func Body(c *gin.Context) (map[string]any, bool) {
	raw, ok := c.Get(ContextBodyKey)
	if !ok {
		return nil, false
	}
	body, ok := raw.(map[string]any)
	return body, ok
}
