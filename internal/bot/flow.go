package bot

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/webgradeuz/fuelbonus/internal/application/service"
	"github.com/webgradeuz/fuelbonus/internal/domain/entity"
	"github.com/webgradeuz/fuelbonus/internal/infrastructure/external/telegram"
)

// Sender is the outbound side of the conversation
type Sender interface {
	SendText(chatID int64, text string) error
	SendContactRequest(chatID int64, text, buttonLabel string) error
}

// checkCodePattern matches a bare check code typed into the chat
var checkCodePattern = regexp.MustCompile(`^[A-Z2-9]{8}$`)

// Flow routes normalized telegram updates through registration and
// redemption conversations.
type Flow struct {
	checks    service.CheckService
	customers service.CustomerService
	sender    Sender
	sessions  *SessionStore
	logger    *zap.Logger
}

// NewFlow creates the bot conversation flow
func NewFlow(
	checks service.CheckService,
	customers service.CustomerService,
	sender Sender,
	sessions *SessionStore,
	logger *zap.Logger,
) *Flow {
	return &Flow{
		checks:    checks,
		customers: customers,
		sender:    sender,
		sessions:  sessions,
		logger:    logger,
	}
}

// HandleUpdate dispatches one incoming update
func (f *Flow) HandleUpdate(ctx context.Context, update telegram.Update) {
	var err error
	switch {
	case update.Command == "start":
		err = f.handleStart(ctx, update)
	case update.Command == "profile":
		err = f.handleProfile(ctx, update)
	case update.Command == "stats":
		err = f.handleStats(ctx, update)
	case update.Command == "help":
		err = f.sendHelp(update.ChatID)
	case update.ContactPhone != "":
		err = f.handleContact(ctx, update)
	default:
		err = f.handleText(ctx, update)
	}
	if err != nil {
		f.logger.Error("Failed to handle bot update",
			zap.String("telegram_id", update.TelegramID), zap.Error(err))
	}
}

// handleStart greets the user. A start payload of the form check_<CODE>
// carries a scanned QR deep link; the code is redeemed right away for
// registered users and parked in the session for new ones.
func (f *Flow) handleStart(ctx context.Context, update telegram.Update) error {
	pendingCode := strings.TrimPrefix(update.CommandArgs, "check_")
	if pendingCode == update.CommandArgs {
		pendingCode = ""
	}

	customer, err := f.customers.GetByTelegramID(ctx, update.TelegramID)
	if err == nil {
		if pendingCode != "" {
			return f.redeem(ctx, update.ChatID, customer, pendingCode)
		}
		if err := f.sender.SendText(update.ChatID,
			fmt.Sprintf("Welcome back, %s!", customer.FullName)); err != nil {
			return err
		}
		return f.sendHelp(update.ChatID)
	}
	if !errors.Is(err, entity.ErrCustomerNotFound) {
		return err
	}

	f.sessions.Put(update.TelegramID, &Session{
		Step:             StepAwaitContact,
		PendingCheckCode: pendingCode,
	})
	return f.sender.SendContactRequest(update.ChatID,
		"Welcome! To get started, please share your phone number.",
		"📱 Share phone number")
}

// handleContact stores the shared phone and asks for the full name
func (f *Flow) handleContact(ctx context.Context, update telegram.Update) error {
	session := f.sessions.Get(update.TelegramID)
	if session == nil || session.Step != StepAwaitContact {
		return f.sender.SendText(update.ChatID, "Send /start to begin.")
	}

	session.Step = StepAwaitName
	session.Phone = update.ContactPhone
	f.sessions.Put(update.TelegramID, session)

	return f.sender.SendText(update.ChatID, "Thanks! Now enter your full name.")
}

// handleText finishes registration or treats the text as a check code
func (f *Flow) handleText(ctx context.Context, update telegram.Update) error {
	session := f.sessions.Get(update.TelegramID)
	if session != nil && session.Step == StepAwaitName {
		return f.finishRegistration(ctx, update, session)
	}

	checkCode := strings.ToUpper(strings.TrimSpace(update.Text))
	if checkCodePattern.MatchString(checkCode) {
		customer, err := f.customers.GetByTelegramID(ctx, update.TelegramID)
		if errors.Is(err, entity.ErrCustomerNotFound) {
			return f.sender.SendText(update.ChatID, "Please register first with /start.")
		}
		if err != nil {
			return err
		}
		return f.redeem(ctx, update.ChatID, customer, checkCode)
	}

	return f.sendHelp(update.ChatID)
}

func (f *Flow) finishRegistration(ctx context.Context, update telegram.Update, session *Session) error {
	fullName := strings.TrimSpace(update.Text)
	if fullName == "" {
		return f.sender.SendText(update.ChatID, "Please enter your full name.")
	}

	customer, err := f.customers.RegisterViaTelegram(ctx, service.TelegramRegistration{
		TelegramID:       update.TelegramID,
		TelegramUsername: update.Username,
		FullName:         fullName,
		Phone:            session.Phone,
	})
	if err != nil {
		return fmt.Errorf("register customer: %w", err)
	}

	pendingCode := session.PendingCheckCode
	f.sessions.Clear(update.TelegramID)

	if err := f.sender.SendText(update.ChatID,
		fmt.Sprintf("Registration complete, %s! Send a check code or scan a QR to collect bonuses.", customer.FullName)); err != nil {
		return err
	}

	if pendingCode != "" {
		return f.redeem(ctx, update.ChatID, customer, pendingCode)
	}
	return nil
}

// redeem attempts redemption and reports the outcome in chat terms
func (f *Flow) redeem(ctx context.Context, chatID int64, customer *entity.Customer, checkCode string) error {
	result, err := f.checks.Redeem(ctx, checkCode, customer.ID)
	if err != nil {
		return f.sender.SendText(chatID, redeemFailureText(err))
	}

	text := fmt.Sprintf(
		"✅ Check accepted!\n\nBonus: %s L\nYour balance: %s L",
		entity.CentilitersToLiters(result.AmountCentiliters).StringFixed(2),
		entity.CentilitersToLiters(result.NewBalanceCentiliters).StringFixed(2),
	)
	if result.StationName != "" {
		text += "\nStation: " + result.StationName
	}
	return f.sender.SendText(chatID, text)
}

func redeemFailureText(err error) string {
	var stateErr *entity.InvalidStateError
	switch {
	case errors.Is(err, entity.ErrCheckNotFound):
		return "❌ Check not found. Please verify the code."
	case errors.Is(err, entity.ErrCheckExpired):
		return "❌ This check has expired."
	case errors.Is(err, entity.ErrNotAuthorized):
		return "❌ This check was issued for a different phone number."
	case errors.As(err, &stateErr):
		if stateErr.Status == entity.CheckStatusUsed {
			return "❌ This check has already been used."
		}
		return "❌ This check is no longer valid."
	default:
		return "❌ Something went wrong, please try again later."
	}
}

func (f *Flow) handleProfile(ctx context.Context, update telegram.Update) error {
	profile, err := f.customers.Profile(ctx, update.TelegramID)
	if errors.Is(err, entity.ErrCustomerNotFound) {
		return f.sender.SendText(update.ChatID, "Please register first with /start.")
	}
	if err != nil {
		return err
	}

	return f.sender.SendText(update.ChatID, fmt.Sprintf(
		"👤 %s\n📞 %s\n⛽ Balance: %s L\n🧾 Checks used: %d",
		profile.FullName,
		profile.Phone,
		entity.CentilitersToLiters(profile.BalanceCentiliters).StringFixed(2),
		profile.UsedChecks,
	))
}

func (f *Flow) handleStats(ctx context.Context, update telegram.Update) error {
	stats, balance, err := f.customers.MonthlyStats(ctx, update.TelegramID)
	if errors.Is(err, entity.ErrCustomerNotFound) {
		return f.sender.SendText(update.ChatID, "Please register first with /start.")
	}
	if err != nil {
		return err
	}

	return f.sender.SendText(update.ChatID, fmt.Sprintf(
		"📊 This month:\nChecks: %d\nBonus collected: %s L\n\nCurrent balance: %s L",
		stats.Checks,
		entity.CentilitersToLiters(stats.Centiliters).StringFixed(2),
		entity.CentilitersToLiters(balance).StringFixed(2),
	))
}

func (f *Flow) sendHelp(chatID int64) error {
	return f.sender.SendText(chatID,
		"Available commands:\n"+
			"/start - register or restart\n"+
			"/profile - your profile and balance\n"+
			"/stats - this month's bonuses\n"+
			"/help - this message\n\n"+
			"Send a check code or scan its QR to collect a bonus.")
}

// Verify interface compliance
var _ telegram.UpdateHandler = (*Flow)(nil)
