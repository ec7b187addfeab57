package flow_service

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/1abobik1/FlowStudio/internal/domain"
	"github.com/1abobik1/FlowStudio/internal/dto"
	"github.com/1abobik1/FlowStudio/internal/repository/lead_store"
	"github.com/1abobik1/FlowStudio/internal/service/cloud_service"
	"github.com/sirupsen/logrus"
)

// действия платформы на data-exchange эндпоинте
const (
	ActionInit              = "INIT"
	ActionDataExchange      = "data_exchange"
	ActionBack              = "BACK"
	ActionPing              = "ping"
	ActionErrorNotification = "error_notification"
)

// экраны flow
const (
	ScreenWelcome  = "WELCOME"
	ScreenPrompt   = "PROMPT"
	ScreenConfirm  = "CONFIRM"
	ScreenRecharge = "RECHARGE"
	ScreenDone     = "DONE"
)

const flowVersion = "3.0"

var ErrUnknownAction = errors.New("unknown flow action")
var ErrUnknownScreen = errors.New("unknown flow screen")

// Wallet — кредитный кошелёк
type Wallet interface {
	InitWallet(ctx context.Context, waID string) error
	Balance(ctx context.Context, waID string) (int, error)
	Debit(ctx context.Context, waID string, n int) error
}

// LeadStore — лиды и состояние flow-сессий
type LeadStore interface {
	GetLead(ctx context.Context, waID string) (domain.Lead, error)
	SaveFlowSession(ctx context.Context, sess domain.FlowSession) error
	GetFlowSession(ctx context.Context, token string) (domain.FlowSession, error)
	DeleteFlowSession(ctx context.Context, token string) error
}

// Cloud — объектное хранилище сгенерированных картинок
type Cloud interface {
	UploadImage(ctx context.Context, bucket, waID string, data []byte, contentType string) (string, error)
	PresignedGetURL(ctx context.Context, bucket, objectKey string) (*url.URL, error)
}

// ImageGenerator — внешняя модель генерации
type ImageGenerator interface {
	Generate(ctx context.Context, prompt, faceURL string) ([]byte, string, error)
}

// Sender — исходящие сообщения платформы
type Sender interface {
	SendImageByURL(ctx context.Context, to, imageURL, caption string) error
}

// PaymentLinker — платёжные ссылки на пополнение
type PaymentLinker interface {
	CreatePaymentLink(ctx context.Context, waID string, credits, amount int) (string, error)
}

type flowService struct {
	wallet      Wallet
	leads       LeadStore
	cloud       Cloud
	generator   ImageGenerator
	sender      Sender
	payments    PaymentLinker
	creditPrice int
}

func NewFlowService(wallet Wallet, leads LeadStore, cloud Cloud, generator ImageGenerator, sender Sender, payments PaymentLinker, creditPrice int) *flowService {
	return &flowService{
		wallet:      wallet,
		leads:       leads,
		cloud:       cloud,
		generator:   generator,
		sender:      sender,
		payments:    payments,
		creditPrice: creditPrice,
	}
}

// HandleAction маршрутизирует расшифрованное действие flow и возвращает
// плейнтекст-ответ, который шифрованный канал завернет обратно.
func (s *flowService) HandleAction(ctx context.Context, payload dto.FlowDataExchange) (dto.FlowResponse, error) {
	const op = "location internal.service.flow_service.HandleAction"

	switch payload.Action {
	case ActionPing:
		return dto.FlowResponse{Data: map[string]interface{}{"status": "active"}}, nil

	case ActionErrorNotification:
		// платформа сообщает об ошибке на клиенте — подтверждаем и логируем
		logrus.Warnf("%s: client error notification: %v", op, payload.Data)
		return dto.FlowResponse{Data: map[string]interface{}{"acknowledged": true}}, nil

	case ActionInit:
		return s.welcomeScreen(ctx, payload)

	case ActionBack:
		return s.handleBack(ctx, payload)

	case ActionDataExchange:
		switch payload.Screen {
		case ScreenPrompt:
			return s.handlePrompt(ctx, payload)
		case ScreenConfirm:
			return s.handleConfirm(ctx, payload)
		default:
			return dto.FlowResponse{}, fmt.Errorf("%w: %q", ErrUnknownScreen, payload.Screen)
		}

	default:
		return dto.FlowResponse{}, fmt.Errorf("%w: %q", ErrUnknownAction, payload.Action)
	}
}

func (s *flowService) welcomeScreen(ctx context.Context, payload dto.FlowDataExchange) (dto.FlowResponse, error) {
	const op = "location internal.service.flow_service.welcomeScreen"

	waID := waIDFromToken(payload.FlowToken)

	// кошелёк мог ещё не существовать, если flow открыт до первого сообщения
	if err := s.wallet.InitWallet(ctx, waID); err != nil {
		logrus.Errorf("%s: %v", op, err)
		return dto.FlowResponse{}, err
	}

	credits, err := s.wallet.Balance(ctx, waID)
	if err != nil {
		logrus.Errorf("%s: %v", op, err)
		return dto.FlowResponse{}, err
	}

	sess := domain.FlowSession{
		Token:     payload.FlowToken,
		WaID:      waID,
		Screen:    ScreenWelcome,
		UpdatedAt: time.Now().UTC(),
	}
	if err := s.leads.SaveFlowSession(ctx, sess); err != nil {
		logrus.Errorf("%s: %v", op, err)
		return dto.FlowResponse{}, err
	}

	return dto.FlowResponse{
		Version: flowVersion,
		Screen:  ScreenWelcome,
		Data:    map[string]interface{}{"credits": credits},
	}, nil
}

// handleBack возвращает предыдущий экран по сохранённой сессии: с CONFIRM
// пользователь попадает обратно на PROMPT с префиллом, во всех остальных
// случаях — на WELCOME.
func (s *flowService) handleBack(ctx context.Context, payload dto.FlowDataExchange) (dto.FlowResponse, error) {
	const op = "location internal.service.flow_service.handleBack"

	sess, err := s.leads.GetFlowSession(ctx, payload.FlowToken)
	if err != nil {
		if !errors.Is(err, lead_store.ErrSessionNotFound) {
			logrus.Errorf("%s: %v", op, err)
		}
		return s.welcomeScreen(ctx, payload)
	}

	if sess.Screen == ScreenConfirm {
		return dto.FlowResponse{
			Version: flowVersion,
			Screen:  ScreenPrompt,
			Data: map[string]interface{}{
				"prompt": sess.Prompt,
				"style":  sess.Style,
			},
		}, nil
	}

	return s.welcomeScreen(ctx, payload)
}

// handlePrompt валидирует запрос, проверяет кредиты и откладывает генерацию
// до подтверждения: промпт и стиль фиксируются в сессии, пользователю
// показывается экран CONFIRM со стоимостью.
func (s *flowService) handlePrompt(ctx context.Context, payload dto.FlowDataExchange) (dto.FlowResponse, error) {
	const op = "location internal.service.flow_service.handlePrompt"

	waID := waIDFromToken(payload.FlowToken)
	prompt, _ := payload.Data["prompt"].(string)
	style, _ := payload.Data["style"].(string)

	if strings.TrimSpace(prompt) == "" {
		return dto.FlowResponse{
			Version: flowVersion,
			Screen:  ScreenPrompt,
			Data:    map[string]interface{}{"error_message": "prompt is required"},
		}, nil
	}

	credits, err := s.wallet.Balance(ctx, waID)
	if err != nil {
		logrus.Errorf("%s: %v", op, err)
		return dto.FlowResponse{}, err
	}

	// кредитов нет — отдаем экран пополнения с платёжной ссылкой
	if credits < 1 {
		return s.rechargeScreen(ctx, waID, credits)
	}

	sess := domain.FlowSession{
		Token:     payload.FlowToken,
		WaID:      waID,
		Screen:    ScreenConfirm,
		Prompt:    strings.TrimSpace(prompt),
		Style:     style,
		UpdatedAt: time.Now().UTC(),
	}
	if err := s.leads.SaveFlowSession(ctx, sess); err != nil {
		logrus.Errorf("%s: %v", op, err)
		return dto.FlowResponse{}, err
	}

	return dto.FlowResponse{
		Version: flowVersion,
		Screen:  ScreenConfirm,
		Data: map[string]interface{}{
			"prompt":  sess.Prompt,
			"style":   sess.Style,
			"credits": credits,
			"cost":    1,
		},
	}, nil
}

// handleConfirm запускает генерацию по зафиксированной на PROMPT сессии.
// Успешный проход завершает сессию: она удаляется, пользователю уходит DONE.
func (s *flowService) handleConfirm(ctx context.Context, payload dto.FlowDataExchange) (dto.FlowResponse, error) {
	const op = "location internal.service.flow_service.handleConfirm"

	waID := waIDFromToken(payload.FlowToken)

	sess, err := s.leads.GetFlowSession(ctx, payload.FlowToken)
	if err != nil {
		if errors.Is(err, lead_store.ErrSessionNotFound) {
			// сессия истекла между PROMPT и подтверждением
			return dto.FlowResponse{
				Version: flowVersion,
				Screen:  ScreenPrompt,
				Data:    map[string]interface{}{"error_message": "session expired, enter prompt again"},
			}, nil
		}
		logrus.Errorf("%s: %v", op, err)
		return dto.FlowResponse{}, err
	}

	// баланс перепроверяется: между PROMPT и CONFIRM он мог измениться
	credits, err := s.wallet.Balance(ctx, waID)
	if err != nil {
		logrus.Errorf("%s: %v", op, err)
		return dto.FlowResponse{}, err
	}
	if credits < 1 {
		return s.rechargeScreen(ctx, waID, credits)
	}

	// эталонное фото лида для композитинга, если есть
	faceURL := ""
	if lead, err := s.leads.GetLead(ctx, waID); err == nil && lead.FaceObjectID != "" {
		if u, err := s.cloud.PresignedGetURL(ctx, cloud_service.BucketFaces, lead.FaceObjectID); err == nil {
			faceURL = u.String()
		} else {
			logrus.Errorf("%s: face url: %v", op, err)
		}
	} else if err != nil && !errors.Is(err, lead_store.ErrLeadNotFound) {
		logrus.Errorf("%s: %v", op, err)
	}

	img, mime, err := s.generator.Generate(ctx, buildPrompt(sess.Prompt, sess.Style), faceURL)
	if err != nil {
		logrus.Errorf("%s: %v", op, err)
		return dto.FlowResponse{}, err
	}

	objID, err := s.cloud.UploadImage(ctx, cloud_service.BucketGenerated, waID, img, mime)
	if err != nil {
		logrus.Errorf("%s: %v", op, err)
		return dto.FlowResponse{}, err
	}

	imageURL, err := s.cloud.PresignedGetURL(ctx, cloud_service.BucketGenerated, objID)
	if err != nil {
		logrus.Errorf("%s: %v", op, err)
		return dto.FlowResponse{}, err
	}

	if err := s.sender.SendImageByURL(ctx, waID, imageURL.String(), "Готово!"); err != nil {
		// доставка не удалась — кредит не списываем
		logrus.Errorf("%s: %v", op, err)
		return dto.FlowResponse{}, err
	}

	if err := s.wallet.Debit(ctx, waID, 1); err != nil {
		logrus.Errorf("%s: %v", op, err)
		return dto.FlowResponse{}, err
	}

	if err := s.leads.DeleteFlowSession(ctx, payload.FlowToken); err != nil {
		logrus.Errorf("%s: %v", op, err)
	}

	return dto.FlowResponse{
		Version: flowVersion,
		Screen:  ScreenDone,
		Data: map[string]interface{}{
			"image_url": imageURL.String(),
			"credits":   credits - 1,
		},
	}, nil
}

func (s *flowService) rechargeScreen(ctx context.Context, waID string, credits int) (dto.FlowResponse, error) {
	const op = "location internal.service.flow_service.rechargeScreen"

	link, err := s.payments.CreatePaymentLink(ctx, waID, 10, 10*s.creditPrice)
	if err != nil {
		logrus.Errorf("%s: %v", op, err)
		return dto.FlowResponse{}, err
	}

	return dto.FlowResponse{
		Version: flowVersion,
		Screen:  ScreenRecharge,
		Data: map[string]interface{}{
			"credits":      credits,
			"payment_link": link,
		},
	}, nil
}

// buildPrompt собирает финальный промпт для модели из пользовательского
// текста и выбранного стиля.
func buildPrompt(prompt, style string) string {
	prompt = strings.TrimSpace(prompt)
	switch style {
	case "anime":
		return prompt + ", anime style, vibrant colors"
	case "photo":
		return prompt + ", photorealistic, 85mm lens, natural light"
	case "art":
		return prompt + ", digital painting, detailed brush strokes"
	default:
		return prompt
	}
}

// waIDFromToken достает wa_id из flow_token. Токен выдается при отправке
// flow пользователю в формате <wa_id>:<uuid>.
func waIDFromToken(token string) string {
	if i := strings.IndexByte(token, ':'); i > 0 {
		return token[:i]
	}
	return token
}
