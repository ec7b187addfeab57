package webhook_handler

import (
	"net/http"

	"github.com/1abobik1/FlowStudio/internal/dto"
	"github.com/1abobik1/FlowStudio/internal/handler/utils"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// PaymentWebhook — подтверждение оплаты от шлюза. HMAC-подпись уже проверена
// middleware'ом, здесь только зачисление кредитов.
func (h *WebhookHandler) PaymentWebhook(c *gin.Context) {
	const op = "location internal.handler.webhook_handler.PaymentWebhook"

	var event dto.PaymentEvent
	if err := c.ShouldBindJSON(&event); err != nil {
		utils.HandleBindError(c, err)
		return
	}

	if event.Type != "payment.completed" {
		logrus.Infof("%s: ignoring event type %q", op, event.Type)
		c.Status(http.StatusOK)
		return
	}

	if err := h.wallet.Credit(c.Request.Context(), event.Data.WaID, event.Data.Credits); err != nil {
		logrus.Errorf("%s: %v", op, err)
		c.Status(http.StatusInternalServerError)
		return
	}

	logrus.Infof("credited %d credits to %s", event.Data.Credits, event.Data.WaID)

	if err := h.sender.SendText(c.Request.Context(), event.Data.WaID,
		"Оплата прошла, кредиты зачислены. Можно генерировать дальше!"); err != nil {
		logrus.Errorf("%s: %v", op, err)
	}

	c.Status(http.StatusOK)
}
