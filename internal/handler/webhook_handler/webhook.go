package webhook_handler

import (
	"context"
	"encoding/base64"
	"errors"
	"net/http"
	"time"

	"github.com/1abobik1/FlowStudio/internal/domain"
	"github.com/1abobik1/FlowStudio/internal/dto"
	"github.com/1abobik1/FlowStudio/internal/handler/utils"
	"github.com/1abobik1/FlowStudio/internal/repository/lead_store"
	"github.com/1abobik1/FlowStudio/internal/service/cloud_service"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// MediaDecryptor — расшифровка входящих зашифрованных медиа
type MediaDecryptor interface {
	DecryptMedia(ctx context.Context, desc dto.MediaDescriptor) (string, error)
}

// LeadStore — лиды
type LeadStore interface {
	SaveLead(ctx context.Context, lead domain.Lead) error
	GetLead(ctx context.Context, waID string) (domain.Lead, error)
}

// Wallet — кошелёк
type Wallet interface {
	InitWallet(ctx context.Context, waID string) error
	Credit(ctx context.Context, waID string, n int) error
}

// Cloud — хранилище эталонных фото
type Cloud interface {
	UploadImage(ctx context.Context, bucket, waID string, data []byte, contentType string) (string, error)
}

// Sender — исходящие сообщения
type Sender interface {
	SendText(ctx context.Context, to, body string) error
	MarkRead(ctx context.Context, messageID string) error
}

type WebhookHandler struct {
	verifyToken string
	media       MediaDecryptor
	leads       LeadStore
	wallet      Wallet
	cloud       Cloud
	sender      Sender
}

func NewWebhookHandler(verifyToken string, media MediaDecryptor, leads LeadStore, wallet Wallet, cloud Cloud, sender Sender) *WebhookHandler {
	return &WebhookHandler{
		verifyToken: verifyToken,
		media:       media,
		leads:       leads,
		wallet:      wallet,
		cloud:       cloud,
		sender:      sender,
	}
}

// Verify — GET-проверка вебхука платформой: эхо hub.challenge при совпадении токена.
func (h *WebhookHandler) Verify(c *gin.Context) {
	mode := c.Query("hub.mode")
	token := c.Query("hub.verify_token")
	challenge := c.Query("hub.challenge")

	if mode == "subscribe" && token == h.verifyToken {
		c.String(http.StatusOK, challenge)
		return
	}
	c.Status(http.StatusForbidden)
}

// Receive — POST входящих сообщений. Платформа ждёт 200 в любом случае,
// иначе начнёт ретраить доставку.
func (h *WebhookHandler) Receive(c *gin.Context) {
	const op = "location internal.handler.webhook_handler.Receive"

	var envelope dto.WebhookEnvelope
	if err := c.ShouldBindJSON(&envelope); err != nil {
		utils.HandleBindError(c, err)
		return
	}

	ctx := c.Request.Context()

	for _, entry := range envelope.Entry {
		for _, change := range entry.Changes {
			if change.Field != "messages" {
				continue
			}
			names := map[string]string{}
			for _, contact := range change.Value.Contacts {
				names[contact.WaID] = contact.Profile.Name
			}
			for _, msg := range change.Value.Messages {
				h.handleMessage(ctx, msg, names[msg.From])
			}
		}
	}

	c.Status(http.StatusOK)
}

func (h *WebhookHandler) handleMessage(ctx context.Context, msg dto.InboundMessage, name string) {
	const op = "location internal.handler.webhook_handler.handleMessage"

	if err := h.sender.MarkRead(ctx, msg.ID); err != nil {
		logrus.Errorf("%s: mark read: %v", op, err)
	}

	switch msg.Type {
	case "text":
		body := ""
		if msg.Text != nil {
			body = msg.Text.Body
		}
		h.captureLead(ctx, msg.From, name, body)

	case "image":
		if msg.Image == nil {
			logrus.Warnf("%s: image message without descriptor from %s", op, msg.From)
			return
		}
		h.ingestFace(ctx, msg.From, name, *msg.Image)

	default:
		logrus.Infof("%s: ignoring message type %q from %s", op, msg.Type, msg.From)
	}
}

// captureLead создаёт лида и кошелёк при первом контакте. Текст первого
// сообщения сохраняется на лиде — это то, с чем человек пришёл.
func (h *WebhookHandler) captureLead(ctx context.Context, waID, name, firstMessage string) {
	const op = "location internal.handler.webhook_handler.captureLead"

	if _, err := h.leads.GetLead(ctx, waID); err == nil {
		return
	} else if !errors.Is(err, lead_store.ErrLeadNotFound) {
		logrus.Errorf("%s: %v", op, err)
		return
	}

	lead := domain.Lead{
		WaID:         waID,
		Name:         name,
		FirstMessage: firstMessage,
		CreatedAt:    time.Now().UTC(),
	}
	if err := h.leads.SaveLead(ctx, lead); err != nil {
		logrus.Errorf("%s: %v", op, err)
		return
	}

	if err := h.wallet.InitWallet(ctx, waID); err != nil {
		logrus.Errorf("%s: %v", op, err)
	}

	logrus.Infof("created new lead: %s", waID)

	greeting := "Привет! Пришли своё фото — и я буду генерировать картинки с твоим лицом."
	if err := h.sender.SendText(ctx, waID, greeting); err != nil {
		logrus.Errorf("%s: %v", op, err)
	}
}

// ingestFace расшифровывает присланное фото и сохраняет его как эталон для композитинга.
func (h *WebhookHandler) ingestFace(ctx context.Context, waID, name string, desc dto.MediaDescriptor) {
	const op = "location internal.handler.webhook_handler.ingestFace"

	plainB64, err := h.media.DecryptMedia(ctx, desc)
	if err != nil {
		logrus.Errorf("%s: %v", op, err)
		return
	}

	img, err := base64.StdEncoding.DecodeString(plainB64)
	if err != nil {
		logrus.Errorf("%s: %v", op, err)
		return
	}

	objID, err := h.cloud.UploadImage(ctx, cloud_service.BucketFaces, waID, img, "image/jpeg")
	if err != nil {
		logrus.Errorf("%s: %v", op, err)
		return
	}

	lead, err := h.leads.GetLead(ctx, waID)
	if err != nil {
		if !errors.Is(err, lead_store.ErrLeadNotFound) {
			logrus.Errorf("%s: %v", op, err)
			return
		}
		lead = domain.Lead{WaID: waID, Name: name, CreatedAt: time.Now().UTC()}
		if err := h.wallet.InitWallet(ctx, waID); err != nil {
			logrus.Errorf("%s: %v", op, err)
		}
	}

	lead.FaceObjectID = objID
	if err := h.leads.SaveLead(ctx, lead); err != nil {
		logrus.Errorf("%s: %v", op, err)
		return
	}

	if err := h.sender.SendText(ctx, waID, "Фото получил! Открывай форму и описывай картинку."); err != nil {
		logrus.Errorf("%s: %v", op, err)
	}
}
