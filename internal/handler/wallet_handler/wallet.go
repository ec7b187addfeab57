package wallet_handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/1abobik1/FlowStudio/internal/dto"
	"github.com/1abobik1/FlowStudio/internal/handler/utils"
	"github.com/1abobik1/FlowStudio/internal/service/wallet_service"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// интерфейс кошелька для админского API
type Wallet interface {
	Balance(ctx context.Context, waID string) (int, error)
	Credit(ctx context.Context, waID string, n int) error
}

type WalletHandler struct {
	wallet Wallet
}

func NewWalletHandler(wallet Wallet) *WalletHandler {
	return &WalletHandler{wallet: wallet}
}

// GetWallet возвращает баланс кошелька по wa_id.
func (h *WalletHandler) GetWallet(c *gin.Context) {
	const op = "location internal.handler.wallet_handler.GetWallet"

	waID := c.Param("wa_id")

	credits, err := h.wallet.Balance(c.Request.Context(), waID)
	if err != nil {
		if errors.Is(err, wallet_service.ErrWalletNotFound) {
			c.JSON(http.StatusNotFound, dto.NotFoundErr{Error: "wallet not found"})
			return
		}
		logrus.Errorf("%s: %v", op, err)
		c.JSON(http.StatusInternalServerError, dto.InternalServerErr{Error: "internal error"})
		return
	}

	c.JSON(http.StatusOK, dto.WalletResp{WaID: waID, Credits: credits})
}

// CreditWallet — ручное пополнение через админку.
func (h *WalletHandler) CreditWallet(c *gin.Context) {
	const op = "location internal.handler.wallet_handler.CreditWallet"

	waID := c.Param("wa_id")

	var req dto.CreditReq
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.HandleBindError(c, err)
		return
	}

	if err := h.wallet.Credit(c.Request.Context(), waID, req.Credits); err != nil {
		if errors.Is(err, wallet_service.ErrWalletNotFound) {
			c.JSON(http.StatusNotFound, dto.NotFoundErr{Error: "wallet not found"})
			return
		}
		logrus.Errorf("%s: %v", op, err)
		c.JSON(http.StatusInternalServerError, dto.InternalServerErr{Error: "internal error"})
		return
	}

	credits, err := h.wallet.Balance(c.Request.Context(), waID)
	if err != nil {
		logrus.Errorf("%s: %v", op, err)
		c.JSON(http.StatusInternalServerError, dto.InternalServerErr{Error: "internal error"})
		return
	}

	c.JSON(http.StatusOK, dto.WalletResp{WaID: waID, Credits: credits})
}
