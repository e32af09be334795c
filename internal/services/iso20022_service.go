package services

import (
	"encoding/xml"
	"fmt"
	"net/http"
	"time"

	"github.com/fieldforce/backend/internal/config"
	"github.com/fieldforce/backend/internal/models"
	"github.com/google/uuid"
	"github.com/moov-io/iso20022/pkg/common"
	"github.com/moov-io/iso20022/pkg/pacs_v08"
	"go.uber.org/zap"
)

const pacs008MessageType = "pacs.008.001.08"

// ISO20022Service renders finalized payment batches as credit transfer
// instructions for the organization's bank.
type ISO20022Service struct {
	payments *PaymentService
	cfg      *config.ReceiptConfig
	log      *zap.Logger
}

func NewISO20022Service(payments *PaymentService, cfg *config.ReceiptConfig, log *zap.Logger) *ISO20022Service {
	return &ISO20022Service{
		payments: payments,
		cfg:      cfg,
		log:      log.Named("iso20022"),
	}
}

// InstructionResponse carries the rendered message
// @Description ISO 20022 credit transfer instruction
type InstructionResponse struct {
	Status      string `json:"status" example:"converted"`
	MessageType string `json:"messageType" example:"pacs.008.001.08"`
	BatchID     string `json:"batchId"`
	XML         string `json:"xml"`
}

// GetInstruction handles instruction rendering
// @Summary Payment batch credit transfer
// @Description Render a finalized payment batch as an ISO 20022 pacs.008 credit transfer
// @Tags payments
// @Produce json
// @Security BearerAuth
// @Param batchId path string true "Payment batch ID"
// @Success 200 {object} InstructionResponse
// @Failure 404 {object} ErrorResponse
// @Router /payments/batches/{batchId}/instruction [get]
func (iso *ISO20022Service) GetInstruction(w http.ResponseWriter, r *http.Request) {
	actor, batch, ok := iso.payments.BatchFromRequest(w, r)
	if !ok {
		return
	}

	payee, err := iso.payments.Payee(r.Context(), actor.OrganizationID, batch.UserID)
	if err != nil {
		WriteError(w, iso.log, err)
		return
	}

	pacs008 := iso.CreatePacs008(batch, payee)

	xmlData, err := iso.ConvertToXML(pacs008)
	if err != nil {
		WriteError(w, iso.log, err)
		return
	}

	writeJSON(w, http.StatusOK, InstructionResponse{
		Status:      "converted",
		MessageType: pacs008MessageType,
		BatchID:     batch.ID,
		XML:         xmlData,
	})
}

// CreatePacs008 creates a single-transaction FIToFICustomerCreditTransfer
// paying the batch total to the payee.
func (iso *ISO20022Service) CreatePacs008(batch *models.PaymentBatch, payee *models.User) *pacs_v08.FIToFICustomerCreditTransferV08 {
	msgId := uuid.New().String()
	creDtTm := time.Now()
	settlementDate := batch.PaidAt

	amount := pacs_v08.ActiveCurrencyAndAmount{
		Ccy:   common.ActiveCurrencyCode(iso.cfg.Currency),
		Value: batch.TotalAmount.Round(2).InexactFloat64(),
	}
	payeeName := fmt.Sprintf("%s %s", payee.FirstName, payee.LastName)
	txID := common.Max35Text(truncate(batch.TransactionID, 35))
	instrID := common.Max35Text(truncate(batch.ID, 35))

	return &pacs_v08.FIToFICustomerCreditTransferV08{
		GrpHdr: pacs_v08.GroupHeader93{
			MsgId:             common.Max35Text(msgId),
			CreDtTm:           common.ISODateTime(creDtTm),
			NbOfTxs:           "1",
			TtlIntrBkSttlmAmt: &amount,
			IntrBkSttlmDt:     (*common.ISODate)(&settlementDate),
			SttlmInf: pacs_v08.SettlementInstruction7{
				SttlmMtd: "CLRG",
			},
		},
		CdtTrfTxInf: []pacs_v08.CreditTransferTransaction39{
			{
				PmtId: pacs_v08.PaymentIdentification7{
					InstrId:    &instrID,
					EndToEndId: txID,
					TxId:       &txID,
				},
				IntrBkSttlmAmt: amount,
				IntrBkSttlmDt:  (*common.ISODate)(&settlementDate),
				ChrgBr:         "SLEV",
				DbtrAgt: pacs_v08.BranchAndFinancialInstitutionIdentification6{
					FinInstnId: pacs_v08.FinancialInstitutionIdentification18{
						BICFI: &[]common.BICFIDec2014Identifier{common.BICFIDec2014Identifier(iso.cfg.PayerAgent)}[0],
					},
				},
				Dbtr: pacs_v08.PartyIdentification135{
					Nm: &[]common.Max140Text{common.Max140Text(iso.cfg.PayerName)}[0],
				},
				CdtrAgt: pacs_v08.BranchAndFinancialInstitutionIdentification6{
					FinInstnId: pacs_v08.FinancialInstitutionIdentification18{
						ClrSysMmbId: &pacs_v08.ClearingSystemMemberIdentification2{
							MmbId: common.Max35Text(truncate(payee.ID, 35)),
						},
					},
				},
				Cdtr: pacs_v08.PartyIdentification135{
					Nm: &[]common.Max140Text{common.Max140Text(payeeName)}[0],
				},
			},
		},
	}
}

// ConvertToXML converts ISO20022 document to XML string
func (iso *ISO20022Service) ConvertToXML(doc any) (string, error) {
	xmlData, err := xml.MarshalIndent(doc, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal XML: %w", err)
	}
	return xml.Header + string(xmlData), nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
