package dto

// BadRequestErr описывает ответ с кодом 400.
type BadRequestErr struct {
	Error string `json:"error"`
}

// InternalServerErr описывает ответ с кодом 500.
type InternalServerErr struct {
	Error string `json:"error"`
}

// UnauthorizedErr описывает ответ с кодом 401.
type UnauthorizedErr struct {
	Error string `json:"error"`
}

// NotFoundErr описывает ответ с кодом 404.
type NotFoundErr struct {
	Error string `json:"error"`
}
