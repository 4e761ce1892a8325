package validation

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"

	"github.com/google/uuid"
)

// Kind задаёт примитивный тип поля схемы.
type Kind int

const (
	KindString Kind = iota
	KindNumber
	KindInteger
	KindBoolean
	KindArray
)

// Violation различает виды нарушений схемы; по ним выбираются override-сообщения.
type Violation string

const (
	ViolationRequired Violation = "required"
	ViolationType     Violation = "type"
	ViolationInteger  Violation = "integer"
	ViolationMin      Violation = "min"
	ViolationMax      Violation = "max"
	ViolationLength   Violation = "length"
	ViolationEmpty    Violation = "empty"
	ViolationUnknown  Violation = "unknown"
	ViolationGUID     Violation = "guid"
	ViolationMinItems Violation = "min_items"
)

// Field описывает одно поле объектной схемы: тип, границы,
// формат и переопределения сообщений по видам нарушений.
type Field struct {
	name       string
	kind       Kind
	required   bool
	min        *float64
	max        *float64
	maxLength  *int
	allowEmpty bool
	guid       bool
	minItems   *int
	elem       *Schema
	defaultVal any
	messages   map[Violation]string
}

// String объявляет строковое поле. Пустые строки запрещены,
// пока явно не разрешены через AllowEmpty.
func String(name string) Field {
	return Field{name: name, kind: KindString}
}

// Number объявляет числовое поле (дробные значения допустимы).
func Number(name string) Field {
	return Field{name: name, kind: KindNumber}
}

// Integer объявляет целочисленное поле.
func Integer(name string) Field {
	return Field{name: name, kind: KindInteger}
}

// Boolean объявляет логическое поле.
func Boolean(name string) Field {
	return Field{name: name, kind: KindBoolean}
}

// Array объявляет поле-массив объектов, каждый элемент которого
// проверяется по схеме elem.
func Array(name string, elem *Schema) Field {
	return Field{name: name, kind: KindArray, elem: elem}
}

// Required помечает поле обязательным.
func (f Field) Required() Field {
	f.required = true
	return f
}

// Min задаёт нижнюю числовую границу (включительно).
func (f Field) Min(v float64) Field {
	f.min = &v
	return f
}

// Max задаёт верхнюю числовую границу (включительно).
func (f Field) Max(v float64) Field {
	f.max = &v
	return f
}

// MaxLength ограничивает длину строки.
func (f Field) MaxLength(n int) Field {
	f.maxLength = &n
	return f
}

// AllowEmpty разрешает пустую строку.
func (f Field) AllowEmpty() Field {
	f.allowEmpty = true
	return f
}

// GUID требует, чтобы строка была корректным GUID.
func (f Field) GUID() Field {
	f.guid = true
	return f
}

// MinItems требует минимальное число элементов массива.
func (f Field) MinItems(n int) Field {
	f.minItems = &n
	return f
}

// WithDefault задаёт значение, подставляемое при отсутствии поля.
func (f Field) WithDefault(v any) Field {
	f.defaultVal = v
	return f
}

// WithMessage переопределяет текст сообщения для вида нарушения.
func (f Field) WithMessage(v Violation, msg string) Field {
	if f.messages == nil {
		f.messages = make(map[Violation]string)
	} else {
		copied := make(map[Violation]string, len(f.messages)+1)
		for k, val := range f.messages {
			copied[k] = val
		}
		f.messages = copied
	}
	f.messages[v] = msg
	return f
}

// Schema — упорядоченная объектная схема. Порядок объявления полей
// определяет, чьё нарушение будет показано вызывающей стороне.
type Schema struct {
	fields []Field
}

// NewSchema собирает схему из полей в порядке объявления.
func NewSchema(fields ...Field) *Schema {
	return &Schema{fields: fields}
}

// FieldViolation фиксирует одно нарушение схемы.
type FieldViolation struct {
	Field   string
	Kind    Violation
	Message string
}

// Error агрегирует все нарушения одной проверки. Наружу в качестве
// текста ошибки уходит сообщение первого нарушения в порядке объявления.
type Error struct {
	violations []FieldViolation
}

func (e *Error) Error() string {
	if len(e.violations) == 0 {
		return "validation failed"
	}
	return e.violations[0].Message
}

// Violations возвращает полный список собранных нарушений.
func (e *Error) Violations() []FieldViolation {
	return e.violations
}

// Validate проверяет input по схеме. Возвращает приведённые значения
// (числа распарсены, значения по умолчанию подставлены) либо *Error.
// Неизвестные ключи верхнего уровня считаются нарушением.
func (s *Schema) Validate(input map[string]any) (map[string]any, error) {
	coerced, violations := s.validate(input, "")
	if len(violations) > 0 {
		return nil, &Error{violations: violations}
	}
	return coerced, nil
}

func (s *Schema) validate(input map[string]any, prefix string) (map[string]any, []FieldViolation) {
	coerced := make(map[string]any, len(s.fields))
	var violations []FieldViolation

	for _, field := range s.fields {
		path := field.path(prefix)
		value, present := input[field.name]
		if !present {
			if field.defaultVal != nil {
				coerced[field.name] = field.defaultVal
				continue
			}
			if field.required {
				violations = append(violations, field.violation(path, ViolationRequired, `%q is required`, path))
			}
			continue
		}

		value, fieldViolations := field.check(path, value)
		if len(fieldViolations) > 0 {
			violations = append(violations, fieldViolations...)
			continue
		}
		coerced[field.name] = value
	}

	// Лишние ключи — тоже нарушение; сортируем для детерминированного вывода.
	var unknown []string
	for key := range input {
		if !s.hasField(key) {
			unknown = append(unknown, key)
		}
	}
	sort.Strings(unknown)
	for _, key := range unknown {
		path := key
		if prefix != "" {
			path = prefix + "." + key
		}
		violations = append(violations, FieldViolation{
			Field:   path,
			Kind:    ViolationUnknown,
			Message: fmt.Sprintf(`%q is not allowed`, path),
		})
	}

	return coerced, violations
}

func (s *Schema) hasField(name string) bool {
	for _, field := range s.fields {
		if field.name == name {
			return true
		}
	}
	return false
}

func (f Field) path(prefix string) string {
	if prefix == "" {
		return f.name
	}
	return prefix + "." + f.name
}

func (f Field) violation(path string, kind Violation, format string, args ...any) FieldViolation {
	message := fmt.Sprintf(format, args...)
	if override, ok := f.messages[kind]; ok {
		message = override
	}
	return FieldViolation{Field: path, Kind: kind, Message: message}
}

// check валидирует присутствующее значение и возвращает приведённую форму.
func (f Field) check(path string, value any) (any, []FieldViolation) {
	switch f.kind {
	case KindString:
		return f.checkString(path, value)
	case KindNumber:
		return f.checkNumber(path, value)
	case KindInteger:
		return f.checkInteger(path, value)
	case KindBoolean:
		return f.checkBoolean(path, value)
	case KindArray:
		return f.checkArray(path, value)
	default:
		return nil, []FieldViolation{f.violation(path, ViolationType, `%q has unsupported schema kind`, path)}
	}
}

func (f Field) checkString(path string, value any) (any, []FieldViolation) {
	str, ok := value.(string)
	if !ok {
		return nil, []FieldViolation{f.violation(path, ViolationType, `%q must be a string`, path)}
	}
	if str == "" && !f.allowEmpty {
		return nil, []FieldViolation{f.violation(path, ViolationEmpty, `%q is not allowed to be empty`, path)}
	}
	if f.maxLength != nil && len(str) > *f.maxLength {
		return nil, []FieldViolation{f.violation(path, ViolationLength,
			`%q length must be less than or equal to %d characters long`, path, *f.maxLength)}
	}
	if f.guid {
		if _, err := uuid.Parse(str); err != nil {
			return nil, []FieldViolation{f.violation(path, ViolationGUID, `%q must be a valid GUID`, path)}
		}
	}
	return str, nil
}

// asFloat принимает только числовые JSON-значения; строки с цифрами не приводятся.
func asFloat(value any) (float64, bool) {
	switch v := value.(type) {
	case json.Number:
		parsed, err := v.Float64()
		if err != nil {
			return 0, false
		}
		return parsed, true
	case float64:
		return v, true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	default:
		return 0, false
	}
}

func (f Field) checkNumber(path string, value any) (any, []FieldViolation) {
	parsed, ok := asFloat(value)
	if !ok {
		return nil, []FieldViolation{f.violation(path, ViolationType, `%q must be a number`, path)}
	}
	if violations := f.checkBounds(path, parsed); len(violations) > 0 {
		return nil, violations
	}
	return parsed, nil
}

func (f Field) checkInteger(path string, value any) (any, []FieldViolation) {
	parsed, ok := asFloat(value)
	if !ok {
		return nil, []FieldViolation{f.violation(path, ViolationType, `%q must be a number`, path)}
	}
	if parsed != math.Trunc(parsed) {
		return nil, []FieldViolation{f.violation(path, ViolationInteger, `%q must be an integer`, path)}
	}
	if violations := f.checkBounds(path, parsed); len(violations) > 0 {
		return nil, violations
	}
	return int64(parsed), nil
}

func (f Field) checkBounds(path string, parsed float64) []FieldViolation {
	if f.min != nil && parsed < *f.min {
		return []FieldViolation{f.violation(path, ViolationMin,
			`%q must be greater than or equal to %s`, path, formatBound(*f.min))}
	}
	if f.max != nil && parsed > *f.max {
		return []FieldViolation{f.violation(path, ViolationMax,
			`%q must be less than or equal to %s`, path, formatBound(*f.max))}
	}
	return nil
}

func (f Field) checkBoolean(path string, value any) (any, []FieldViolation) {
	parsed, ok := value.(bool)
	if !ok {
		return nil, []FieldViolation{f.violation(path, ViolationType, `%q must be a boolean`, path)}
	}
	return parsed, nil
}

func (f Field) checkArray(path string, value any) (any, []FieldViolation) {
	items, ok := value.([]any)
	if !ok {
		return nil, []FieldViolation{f.violation(path, ViolationType, `%q must be an array`, path)}
	}
	if f.minItems != nil && len(items) < *f.minItems {
		return nil, []FieldViolation{f.violation(path, ViolationMinItems,
			`%q must contain at least %d items`, path, *f.minItems)}
	}

	coerced := make([]any, 0, len(items))
	var violations []FieldViolation
	for i, item := range items {
		elemPath := fmt.Sprintf("%s[%d]", path, i)
		obj, ok := item.(map[string]any)
		if !ok {
			violations = append(violations, f.violation(elemPath, ViolationType, `%q must be of type object`, elemPath))
			continue
		}
		coercedItem, itemViolations := f.elem.validate(obj, elemPath)
		if len(itemViolations) > 0 {
			violations = append(violations, itemViolations...)
			continue
		}
		coerced = append(coerced, coercedItem)
	}
	if len(violations) > 0 {
		return nil, violations
	}
	return coerced, nil
}

// formatBound печатает границу без хвостовых нулей ("0", не "0.000000").
func formatBound(v float64) string {
	if v == math.Trunc(v) {
		return fmt.Sprintf("%d", int64(v))
	}
	return fmt.Sprintf("%g", v)
}
