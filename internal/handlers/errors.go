package handlers

import (
	"errors"
	"net/http"

	"github.com/lojapijamas/storefront/internal/models"
	pkghttp "github.com/lojapijamas/storefront/pkg/http"
)

// Default messages for service errors. Handlers pass their own where the
// resource is known.
const (
	msgUnauthorized   = "Não autenticado."
	msgForbidden      = "Acesso negado."
	msgNotFound       = "Recurso não encontrado."
	msgConflict       = "Registro já existe."
	msgTooMany        = "Muitas solicitações. Tente novamente mais tarde."
	msgInvalidToken   = "Token inválido ou expirado."
	msgInternal       = "Erro no servidor."
	msgUnavailable    = "Serviço não configurado."
	msgUpstream       = "Falha ao contatar serviço externo."
	msgInvalidPayload = "Dados inválidos"
)

func writeBadRequest(w http.ResponseWriter, message string) {
	pkghttp.WriteBadRequest(w, message)
}

// writeServiceError maps a service error to its HTTP response. Validation
// errors carry their own message.
func writeServiceError(w http.ResponseWriter, err error) {
	var validationErr *models.ValidationError
	switch {
	case errors.As(err, &validationErr):
		pkghttp.WriteBadRequest(w, validationErr.Message)
	case errors.Is(err, models.ErrBadRequest):
		pkghttp.WriteBadRequest(w, msgInvalidPayload)
	case errors.Is(err, models.ErrUnauthorized):
		pkghttp.WriteUnauthorized(w, msgUnauthorized)
	case errors.Is(err, models.ErrForbidden):
		pkghttp.WriteForbidden(w, msgForbidden)
	case errors.Is(err, models.ErrNotFound):
		pkghttp.WriteNotFound(w, msgNotFound)
	case errors.Is(err, models.ErrConflict):
		pkghttp.WriteConflict(w, msgConflict)
	case errors.Is(err, models.ErrTooManyRequests):
		pkghttp.WriteTooManyRequests(w, msgTooMany)
	case errors.Is(err, models.ErrInvalidToken):
		pkghttp.WriteBadRequest(w, msgInvalidToken)
	case errors.Is(err, models.ErrServiceUnavailable):
		pkghttp.WriteServiceUnavailable(w, msgUnavailable)
	case errors.Is(err, models.ErrUpstream):
		pkghttp.WriteBadGateway(w, msgUpstream)
	default:
		pkghttp.WriteInternalError(w, msgInternal)
	}
}
