package shared

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
)

// RespondError escreve o payload {"error": ...} com o status adequado.
// Erros desconhecidos são logados e respondidos com a mensagem genérica fallback.
func RespondError(c *gin.Context, err error, fallback string) {
	err = TranslateDBError(err)

	var appErr *AppError
	if errors.As(err, &appErr) {
		status := appErr.Kind.Status()
		if status >= http.StatusInternalServerError {
			log.WithError(err).WithField("path", c.FullPath()).Error("❌ " + appErr.Message)
		}
		c.JSON(status, gin.H{"error": appErr.Message})
		return
	}

	log.WithError(err).WithFields(log.Fields{
		"path":       c.FullPath(),
		"request_id": c.GetString(RequestIDKey),
	}).Error("❌ " + fallback)
	c.JSON(http.StatusInternalServerError, gin.H{"error": fallback})
}

// RequestIDKey é a chave do request id no contexto do gin
const RequestIDKey = "request_id"

// ParseIDParam lê um parâmetro numérico da rota, respondendo 400 quando inválido
func ParseIDParam(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid " + name})
		return 0, false
	}
	return id, true
}

// BindError responde 400 para falhas de binding/validação do gin
func BindError(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
}
