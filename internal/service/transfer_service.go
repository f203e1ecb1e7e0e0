package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"nfc-wallet/internal/core/domain"
	"nfc-wallet/internal/core/ports"
	"nfc-wallet/pkg/apperror"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

const idempotencyTTL = 24 * time.Hour

// TransferServiceImpl implements ports.TransferService. Each movement is a
// single database transaction covering balances, records and ledger lines.
type TransferServiceImpl struct {
	wallets    ports.WalletService
	walletRepo ports.WalletRepository
	txnRepo    ports.TransactionRepository
	cardRepo   ports.CardRepository
	idempRepo  ports.IdempotencyRepository
	idempCache ports.IdempotencyCache
	ledger     ledgerWriter
	fees       ports.FeePolicy
	transactor ports.DBTransactor
	log        zerolog.Logger
}

// NewTransferService creates a new TransferServiceImpl.
func NewTransferService(
	wallets ports.WalletService,
	walletRepo ports.WalletRepository,
	txnRepo ports.TransactionRepository,
	cardRepo ports.CardRepository,
	idempRepo ports.IdempotencyRepository,
	idempCache ports.IdempotencyCache,
	ledger ledgerWriter,
	fees ports.FeePolicy,
	transactor ports.DBTransactor,
	log zerolog.Logger,
) *TransferServiceImpl {
	return &TransferServiceImpl{
		wallets:    wallets,
		walletRepo: walletRepo,
		txnRepo:    txnRepo,
		cardRepo:   cardRepo,
		idempRepo:  idempRepo,
		idempCache: idempCache,
		ledger:     ledger,
		fees:       fees,
		transactor: transactor,
		log:        log,
	}
}

// Transfer moves amount from the sender's wallet to the receiver's,
// creating the receiver wallet on first use. With an idempotency key a
// replay returns the stored result without moving money again.
func (s *TransferServiceImpl) Transfer(ctx context.Context, req ports.TransferRequest) (*domain.TransactionPair, error) {
	req.Currency = domain.NormalizeCurrency(req.Currency)
	if !domain.ValidAmount(req.Amount) {
		return nil, apperror.ErrInvalidAmount()
	}
	if !domain.ValidCurrency(req.Currency) {
		return nil, apperror.Validation("currency must be a 3-letter ISO 4217 code")
	}
	if req.SenderOwnerID == req.ReceiverOwnerID {
		return nil, apperror.ErrSelfTransfer()
	}

	var idempKey string
	if req.IdempotencyKey != "" {
		idempKey = domain.BuildTransferIdempotencyKey(req.SenderOwnerID, req.IdempotencyKey)
		pair, err := s.replay(ctx, idempKey)
		if err != nil || pair != nil {
			return pair, err
		}
	}

	sender, err := s.walletRepo.GetByOwner(ctx, req.SenderOwnerID, req.Currency)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("get sender wallet: %w", err))
	}
	if sender == nil {
		return nil, apperror.ErrWalletNotFound()
	}
	receiver, err := s.wallets.GetOrCreate(ctx, req.ReceiverOwnerID, req.Currency)
	if err != nil {
		return nil, err
	}

	pair, respJSON, err := s.executeTransfer(ctx, req, sender.ID, receiver.ID, idempKey)
	if errors.Is(err, ports.ErrDuplicateIdempotencyKey) {
		// A concurrent request with the same key committed first.
		stored, replayErr := s.replay(ctx, idempKey)
		if replayErr != nil {
			return nil, replayErr
		}
		if stored == nil {
			return nil, apperror.ErrIdempotencyConflict()
		}
		return stored, nil
	}
	if err != nil {
		return nil, err
	}

	if idempKey != "" {
		if err := s.idempCache.Set(ctx, idempKey, respJSON, idempotencyTTL); err != nil {
			s.log.Warn().Err(err).Str("key", idempKey).Msg("failed to cache idempotency in redis")
		}
	}

	s.log.Info().
		Str("reference", pair.Reference).
		Str("sender_wallet_id", sender.ID.String()).
		Str("receiver_wallet_id", receiver.ID.String()).
		Str("amount", req.Amount.StringFixed(domain.MoneyScale)).
		Msg("transfer completed")

	return pair, nil
}

func (s *TransferServiceImpl) executeTransfer(
	ctx context.Context,
	req ports.TransferRequest,
	senderID, receiverID uuid.UUID,
	idempKey string,
) (*domain.TransactionPair, []byte, error) {
	fee := s.fees.Fee(domain.TransactionTypeTransfer, req.Amount)
	debitTotal := req.Amount.Add(fee)

	reference, err := newTransferReference()
	if err != nil {
		return nil, nil, apperror.InternalError(err)
	}

	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return nil, nil, apperror.InternalError(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	locked, err := s.lockPair(ctx, dbTx, senderID, receiverID)
	if err != nil {
		return nil, nil, err
	}
	senderWallet, receiverWallet := locked[senderID], locked[receiverID]

	if err := applyDebit(ctx, s.walletRepo, dbTx, senderWallet, debitTotal); err != nil {
		return nil, nil, err
	}
	if err := applyCredit(ctx, s.walletRepo, dbTx, receiverWallet, req.Amount); err != nil {
		return nil, nil, err
	}

	now := time.Now().UTC()
	senderTxn := &domain.Transaction{
		ID:          uuid.New(),
		Reference:   reference,
		OwnerID:     req.SenderOwnerID,
		WalletID:    senderID,
		Type:        domain.TransactionTypeTransfer,
		Amount:      req.Amount.Neg(),
		Fee:         fee,
		Total:       debitTotal.Neg(),
		Currency:    req.Currency,
		Status:      domain.TransactionStatusCompleted,
		Description: req.Description,
		Metadata:    map[string]string{"counterparty_owner_id": req.ReceiverOwnerID.String()},
		ProcessedAt: now,
		CreatedAt:   now,
	}
	receiverTxn := &domain.Transaction{
		ID:          uuid.New(),
		Reference:   reference,
		OwnerID:     req.ReceiverOwnerID,
		WalletID:    receiverID,
		Type:        domain.TransactionTypeTransfer,
		Amount:      req.Amount,
		Fee:         decimal.Zero,
		Total:       req.Amount,
		Currency:    req.Currency,
		Status:      domain.TransactionStatusCompleted,
		Description: req.Description,
		Metadata:    map[string]string{"counterparty_owner_id": req.SenderOwnerID.String()},
		ProcessedAt: now,
		CreatedAt:   now,
	}
	for _, txn := range []*domain.Transaction{senderTxn, receiverTxn} {
		if err := s.txnRepo.Create(ctx, dbTx, txn); err != nil {
			return nil, nil, apperror.InternalError(fmt.Errorf("create transaction: %w", err))
		}
	}

	if err := s.recordSides(ctx, dbTx, reference, req.Amount, req.Currency,
		senderID.String(), domain.CounterpartWallet,
		receiverID.String(), domain.CounterpartWallet,
	); err != nil {
		return nil, nil, err
	}

	pair := &domain.TransactionPair{Reference: reference, Sender: senderTxn, Receiver: receiverTxn}

	var respJSON []byte
	if idempKey != "" {
		respJSON, err = json.Marshal(pair)
		if err != nil {
			return nil, nil, apperror.InternalError(fmt.Errorf("marshal response: %w", err))
		}
		err = s.idempRepo.Create(ctx, dbTx, &domain.IdempotencyLog{
			Key:          idempKey,
			Reference:    reference,
			ResponseJSON: respJSON,
			CreatedAt:    now,
		})
		if errors.Is(err, ports.ErrDuplicateIdempotencyKey) {
			return nil, nil, err
		}
		if err != nil {
			return nil, nil, apperror.InternalError(fmt.Errorf("save idempotency log: %w", err))
		}
	}

	if err := dbTx.Commit(ctx); err != nil {
		return nil, nil, apperror.InternalError(fmt.Errorf("commit tx: %w", err))
	}
	return pair, respJSON, nil
}

// lockPair locks both wallets in ascending ID order so two opposite
// transfers cannot deadlock.
func (s *TransferServiceImpl) lockPair(ctx context.Context, tx pgx.Tx, a, b uuid.UUID) (map[uuid.UUID]*domain.Wallet, error) {
	first, second := a, b
	if bytes.Compare(b[:], a[:]) < 0 {
		first, second = b, a
	}
	locked := make(map[uuid.UUID]*domain.Wallet, 2)
	for _, id := range []uuid.UUID{first, second} {
		w, err := lockWallet(ctx, s.walletRepo, tx, id)
		if err != nil {
			return nil, err
		}
		locked[id] = w
	}
	return locked, nil
}

// ProcessPayment pays an external merchant from the owner's wallet with one
// of the owner's active cards. The fee is charged on top of amount.
func (s *TransferServiceImpl) ProcessPayment(ctx context.Context, req ports.PaymentRequest) (*domain.Transaction, error) {
	req.Currency = domain.NormalizeCurrency(req.Currency)
	if strings.TrimSpace(req.Cryptogram) == "" {
		return nil, apperror.ErrInvalidCryptogram()
	}
	if !domain.ValidAmount(req.Amount) {
		return nil, apperror.ErrInvalidAmount()
	}
	if !domain.ValidCurrency(req.Currency) {
		return nil, apperror.Validation("currency must be a 3-letter ISO 4217 code")
	}
	if strings.TrimSpace(req.MerchantName) == "" {
		return nil, apperror.Validation("merchant name is required")
	}

	card, err := s.cardRepo.GetByID(ctx, req.CardID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("get card: %w", err))
	}
	if card == nil || card.OwnerID != req.OwnerID {
		return nil, apperror.ErrCardNotFound()
	}
	if card.Status != domain.CardStatusActive {
		return nil, apperror.ErrCardNotActive()
	}

	wallet, err := s.walletRepo.GetByOwner(ctx, req.OwnerID, req.Currency)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("get wallet: %w", err))
	}
	if wallet == nil {
		return nil, apperror.ErrWalletNotFound()
	}

	fee := s.fees.Fee(domain.TransactionTypePayment, req.Amount)
	total := req.Amount.Add(fee)

	reference, err := newPaymentReference()
	if err != nil {
		return nil, apperror.InternalError(err)
	}

	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	locked, err := lockWallet(ctx, s.walletRepo, dbTx, wallet.ID)
	if err != nil {
		return nil, err
	}
	if err := applyDebit(ctx, s.walletRepo, dbTx, locked, total); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	txn := &domain.Transaction{
		ID:          uuid.New(),
		Reference:   reference,
		OwnerID:     req.OwnerID,
		WalletID:    wallet.ID,
		Type:        domain.TransactionTypePayment,
		Amount:      req.Amount.Neg(),
		Fee:         fee,
		Total:       total.Neg(),
		Currency:    req.Currency,
		Status:      domain.TransactionStatusCompleted,
		Description: "Payment to " + req.MerchantName,
		Metadata: map[string]string{
			"merchant_name":       req.MerchantName,
			"card_id":             card.ID.String(),
			"cryptogram_fragment": cryptogramFragment(req.Cryptogram),
		},
		ProcessedAt: now,
		CreatedAt:   now,
	}
	if err := s.txnRepo.Create(ctx, dbTx, txn); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("create transaction: %w", err))
	}

	if err := s.recordSides(ctx, dbTx, reference, req.Amount, req.Currency,
		card.TokenReference, domain.CounterpartCardToken,
		req.MerchantName, domain.CounterpartMerchant,
	); err != nil {
		return nil, err
	}

	if err := dbTx.Commit(ctx); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("commit tx: %w", err))
	}

	s.log.Info().
		Str("reference", reference).
		Str("wallet_id", wallet.ID.String()).
		Str("card_id", card.ID.String()).
		Str("amount", req.Amount.StringFixed(domain.MoneyScale)).
		Str("fee", fee.StringFixed(domain.MoneyScale)).
		Msg("payment processed")

	return txn, nil
}

// recordSides writes both ledger lines of a movement in tx. Both carry the
// moved amount; fees live on the transaction records.
func (s *TransferServiceImpl) recordSides(
	ctx context.Context,
	tx pgx.Tx,
	reference string,
	amount decimal.Decimal,
	currency string,
	debitRef string, debitKind domain.CounterpartKind,
	creditRef string, creditKind domain.CounterpartKind,
) error {
	sides := []ports.RecordEntryRequest{
		{Direction: domain.DirectionDebit, Counterpart: debitRef, CounterpartKind: debitKind},
		{Direction: domain.DirectionCredit, Counterpart: creditRef, CounterpartKind: creditKind},
	}
	for _, side := range sides {
		side.TransactionID = reference
		side.Amount = amount
		side.Currency = currency
		side.Status = domain.LedgerStatusCompleted
		if _, err := s.ledger.RecordEntryTx(ctx, tx, side); err != nil {
			return err
		}
	}
	return nil
}

// replay returns the stored result for an idempotency key: Redis first,
// then the database log. It returns nil when the key is unused.
func (s *TransferServiceImpl) replay(ctx context.Context, key string) (*domain.TransactionPair, error) {
	cached, err := s.idempCache.Get(ctx, key)
	if err != nil {
		s.log.Warn().Err(err).Str("key", key).Msg("redis idempotency check failed, falling through to DB")
	}
	if cached != nil {
		return decodePair(cached)
	}

	idempLog, err := s.idempRepo.Get(ctx, key)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("db idempotency check: %w", err))
	}
	if idempLog != nil {
		return decodePair(idempLog.ResponseJSON)
	}
	return nil, nil
}

func decodePair(data []byte) (*domain.TransactionPair, error) {
	var pair domain.TransactionPair
	if err := json.Unmarshal(data, &pair); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("unmarshal cached transfer: %w", err))
	}
	return &pair, nil
}

func cryptogramFragment(cryptogram string) string {
	if len(cryptogram) > 8 {
		cryptogram = cryptogram[:8]
	}
	return cryptogram + "..."
}
