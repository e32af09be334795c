package services

import (
	"bytes"
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"image/png"
	"time"

	"github.com/fieldforce/backend/internal/config"
	"github.com/fieldforce/backend/internal/models"
	"github.com/go-redis/redis/v8"
	"github.com/shopspring/decimal"
	"github.com/skip2/go-qrcode"
)

// Receipt is the verifiable summary of a payment batch behind a QR code.
type Receipt struct {
	BatchID       string          `json:"batchId"`
	UserID        string          `json:"userId"`
	MonthYear     string          `json:"monthYear"`
	TransactionID string          `json:"transactionId"`
	Count         int             `json:"count"`
	TotalAmount   decimal.Decimal `json:"totalAmount" swaggertype:"number"`
	PaidDate      time.Time       `json:"paidDate"`
	IssuedAt      time.Time       `json:"issuedAt"`
}

type QRService struct {
	redis *redis.Client
	cfg   *config.ReceiptConfig
}

func NewQRService(redisClient *redis.Client, cfg *config.ReceiptConfig) *QRService {
	return &QRService{
		redis: redisClient,
		cfg:   cfg,
	}
}

func receiptKey(code string) string {
	return fmt.Sprintf("receipt:%s", code)
}

// GenerateReceipt stores the batch receipt under a random code and returns the
// code with a base64 PNG of the verification URL.
func (s *QRService) GenerateReceipt(ctx context.Context, batch *models.PaymentBatch) (string, string, error) {
	if s.redis == nil {
		return "", "", ErrReceiptsUnavailable
	}

	receipt := Receipt{
		BatchID:       batch.ID,
		UserID:        batch.UserID,
		MonthYear:     batch.MonthYear,
		TransactionID: batch.TransactionID,
		Count:         batch.ExpenseCount,
		TotalAmount:   batch.TotalAmount,
		PaidDate:      batch.PaidAt,
		IssuedAt:      time.Now().UTC(),
	}

	jsonData, err := json.Marshal(receipt)
	if err != nil {
		return "", "", err
	}

	code, err := s.generateNonce()
	if err != nil {
		return "", "", err
	}

	if err := s.redis.Set(ctx, receiptKey(code), jsonData, s.cfg.TTL).Err(); err != nil {
		return "", "", fmt.Errorf("store receipt: %w", err)
	}

	qr, err := qrcode.New(s.cfg.BaseURL+code, qrcode.Medium)
	if err != nil {
		return "", "", err
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, qr.Image(s.cfg.ImageSize)); err != nil {
		return "", "", err
	}

	return code, base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}

// VerifyReceipt returns the receipt behind a code. Codes stay valid until
// they expire.
func (s *QRService) VerifyReceipt(ctx context.Context, code string) (*Receipt, error) {
	if s.redis == nil {
		return nil, ErrReceiptsUnavailable
	}

	data, err := s.redis.Get(ctx, receiptKey(code)).Bytes()
	if err == redis.Nil {
		return nil, notFoundf("invalid or expired receipt code")
	}
	if err != nil {
		return nil, fmt.Errorf("load receipt: %w", err)
	}

	var receipt Receipt
	if err := json.Unmarshal(data, &receipt); err != nil {
		return nil, fmt.Errorf("decode receipt: %w", err)
	}
	return &receipt, nil
}

func (s *QRService) generateNonce() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
