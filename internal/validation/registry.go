package validation

import "strings"

// Method — поддерживаемый HTTP-метод в нижнем регистре.
type Method string

const (
	MethodGet    Method = "get"
	MethodPost   Method = "post"
	MethodPut    Method = "put"
	MethodPatch  Method = "patch"
	MethodDelete Method = "delete"
)

// ParseMethod нормализует метод запроса. Второе значение false означает,
// что метод не входит в пятёрку поддерживаемых и валидация не выполняется.
func ParseMethod(raw string) (Method, bool) {
	switch Method(strings.ToLower(raw)) {
	case MethodGet:
		return MethodGet, true
	case MethodPost:
		return MethodPost, true
	case MethodPut:
		return MethodPut, true
	case MethodPatch:
		return MethodPatch, true
	case MethodDelete:
		return MethodDelete, true
	default:
		return "", false
	}
}

// Маршруты API, известные реестру схем.
const (
	RouteProducts       = "/api/products"
	RouteProductByID    = "/api/products/:id"
	RouteProductRestock = "/api/products/:id/restock"
	RouteProductSell    = "/api/products/:id/sell"
	RouteOrders         = "/api/orders"
)

// Entry — пара схем для одной комбинации маршрута и метода.
// Nil-схема означает "эту часть запроса не проверяем".
type Entry struct {
	Params *Schema
	Body   *Schema
}

type routeKey struct {
	path   string
	method Method
}

// Registry — неизменяемое после сборки соответствие
// (шаблон маршрута, метод) → пара схем.
type Registry struct {
	entries map[routeKey]Entry
}

// NewRegistry создаёт пустой реестр.
func NewRegistry() *Registry {
	return &Registry{entries: make(map[routeKey]Entry)}
}

// Register добавляет запись реестра. Вызывается только при сборке на старте.
func (r *Registry) Register(path string, method Method, entry Entry) {
	r.entries[routeKey{path: path, method: method}] = entry
}

// Lookup возвращает запись для маршрута и метода. Отсутствие записи —
// явный случай "валидация не настроена, запрос проходит дальше".
func (r *Registry) Lookup(path, rawMethod string) (Entry, bool) {
	method, ok := ParseMethod(rawMethod)
	if !ok {
		return Entry{}, false
	}
	entry, ok := r.entries[routeKey{path: path, method: method}]
	return entry, ok
}

// Default собирает реестр схем для всего API.
func Default() *Registry {
	registry := NewRegistry()

	registry.Register(RouteProducts, MethodGet, Entry{})
	registry.Register(RouteProducts, MethodPost, Entry{Body: createProductSchema()})
	registry.Register(RouteProductByID, MethodGet, Entry{Params: idSchema()})
	registry.Register(RouteProductByID, MethodPut, Entry{Params: idSchema(), Body: updateProductSchema()})
	registry.Register(RouteProductByID, MethodDelete, Entry{Params: idSchema()})
	registry.Register(RouteProductRestock, MethodPost, Entry{Params: idSchema(), Body: restockProductSchema()})
	registry.Register(RouteProductSell, MethodPost, Entry{Params: idSchema(), Body: sellProductSchema()})
	registry.Register(RouteOrders, MethodPost, Entry{Body: createOrderSchema()})

	return registry
}

func createProductSchema() *Schema {
	return NewSchema(
		String("name").Required().MaxLength(50),
		String("description").Required().MaxLength(50),
		Number("price").Required().Min(0),
		Integer("stock").Required().Min(0),
	)
}

func updateProductSchema() *Schema {
	return NewSchema(
		String("name").MaxLength(50),
		String("description").MaxLength(50),
		Number("price").Min(0),
		Integer("stock").Min(0),
	)
}

// idSchema проверяет path-параметр :id как непрозрачный идентификатор.
func idSchema() *Schema {
	return NewSchema(
		String("id").Required().
			WithMessage(ViolationRequired, "Id is required").
			WithMessage(ViolationEmpty, "Id is required").
			WithMessage(ViolationType, "Id must be a string").
			WithMessage(ViolationGUID, "Invalid id"),
	)
}

func restockProductSchema() *Schema {
	return NewSchema(
		Integer("stock").Required().Min(0).
			WithMessage(ViolationMin, "Stock must be greater than or equal to 0").
			WithMessage(ViolationType, "Stock must be a number").
			WithMessage(ViolationInteger, "Stock must be an integer").
			WithMessage(ViolationRequired, "Stock is required"),
	)
}

func sellProductSchema() *Schema {
	return NewSchema(
		Integer("quantity").Required().Min(0).
			WithMessage(ViolationMin, "Quantity must be greater than or equal to 0").
			WithMessage(ViolationType, "Quantity must be a number").
			WithMessage(ViolationInteger, "Quantity must be an integer").
			WithMessage(ViolationRequired, "Quantity is required"),
	)
}

func createOrderSchema() *Schema {
	return NewSchema(
		String("customerId").Required().GUID(),
		Array("products", NewSchema(
			String("productId").Required(),
			Integer("quantity").Required().Min(1),
		)).Required().MinItems(1),
	)
}
