package flow_handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/1abobik1/FlowStudio/internal/dto"
	"github.com/1abobik1/FlowStudio/internal/handler/utils"
	"github.com/1abobik1/FlowStudio/internal/protocol"
	"github.com/1abobik1/FlowStudio/internal/service/flow_crypto"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// интерфейс бизнес-логики flow
type FlowService interface {
	HandleAction(ctx context.Context, payload dto.FlowDataExchange) (dto.FlowResponse, error)
}

type FlowHandler struct {
	channel *flow_crypto.Channel
	svc     FlowService
}

func NewFlowHandler(channel *flow_crypto.Channel, svc FlowService) *FlowHandler {
	return &FlowHandler{channel: channel, svc: svc}
}

// Exchange — data-exchange эндпоинт платформы. Принимает шифрованный конверт,
// отдает base64-строку (raw text, не JSON). Детали ошибок никогда не уходят
// платформе — только суб-код в логи, ответ всегда пустой 500.
func (h *FlowHandler) Exchange(c *gin.Context) {
	const op = "location internal.handler.flow_handler.Exchange"

	var req dto.FlowExchangeReq
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.HandleBindError(c, err)
		return
	}

	inbound, err := h.channel.DecryptInbound(req)
	if err != nil {
		// для attempt-limiter'а: серия таких отказов блокирует IP
		c.Set("failed_exchange", true)
		logProtocolError(op, err)
		c.Status(http.StatusInternalServerError)
		return
	}

	resp, err := h.svc.HandleAction(c.Request.Context(), inbound.Payload)
	if err != nil {
		logrus.Errorf("%s: %v", op, err)
		c.Status(http.StatusInternalServerError)
		return
	}

	encrypted, err := h.channel.EncryptOutbound(resp, inbound.AESKey, inbound.RequestIV)
	if err != nil {
		logProtocolError(op, err)
		c.Status(http.StatusInternalServerError)
		return
	}

	c.Data(http.StatusOK, "text/plain; charset=utf-8", []byte(encrypted))
}

func logProtocolError(op string, err error) {
	var pe *protocol.ProtocolError
	if errors.As(err, &pe) {
		logrus.Errorf("%s: [%s] %v", op, pe.Code, err)
		return
	}
	logrus.Errorf("%s: %v", op, err)
}
