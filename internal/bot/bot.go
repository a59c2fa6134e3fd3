// Package bot turns Telegram updates into ocean queries and replies.
package bot

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"github.com/sourcegraph/conc/panics"
	"go.uber.org/zap"

	"oceanbot/internal/aggregate"
	oberr "oceanbot/internal/errors"
	"oceanbot/internal/model"
	"oceanbot/internal/observability/metrics"
	"oceanbot/internal/telegram"
)

// Sender delivers replies to a chat.
type Sender interface {
	SendMessage(ctx context.Context, chatID int64, text string, markup *telegram.InlineKeyboardMarkup) error
	AnswerCallbackQuery(ctx context.Context, id, text string) error
}

// OceanSource is the ocean aggregator.
type OceanSource interface {
	GetOceanInfos(ctx context.Context, filterToken string, notify aggregate.NotifyFunc) (aggregate.Result, error)
}

// UserStore loads and saves whole user profiles.
type UserStore interface {
	User(ctx context.Context, id int64) (model.UserProfile, error)
	SaveUser(ctx context.Context, user model.UserProfile) error
}

// StakeReader reads a wallet's stake in a pool.
type StakeReader interface {
	UserInfo(ctx context.Context, pool, depositToken, user common.Address) (decimal.Decimal, error)
}

// Bot handles updates. Every handler error is logged and answered with a
// generic failure message.
type Bot struct {
	sender Sender
	oceans OceanSource
	users  UserStore
	stakes StakeReader
	logger *zap.Logger
	now    func() time.Time
}

func New(sender Sender, oceans OceanSource, users UserStore, stakes StakeReader, logger *zap.Logger) *Bot {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Bot{
		sender: sender,
		oceans: oceans,
		users:  users,
		stakes: stakes,
		logger: logger,
		now:    time.Now,
	}
}

// SetClock overrides the time source used for "updated ... ago" texts.
func (b *Bot) SetClock(now func() time.Time) {
	b.now = now
}

// request is the part of an update a handler needs.
type request struct {
	chatID int64
	userID int64
	text   string
}

// HandleUpdate dispatches one update. It never panics.
func (b *Bot) HandleUpdate(ctx context.Context, update telegram.Update) {
	kind, req, callbackID := classify(update)
	if kind == "" {
		return
	}
	log := b.logger.With(zap.Int64("update", update.UpdateID), zap.String("kind", kind), zap.Int64("chat", req.chatID))

	var pc panics.Catcher
	var err error
	pc.Try(func() { err = b.dispatch(ctx, kind, req) })
	if r := pc.Recovered(); r != nil {
		err = r.AsError()
	}
	if callbackID != "" {
		if aerr := b.sender.AnswerCallbackQuery(ctx, callbackID, ""); aerr != nil {
			log.Debug("answer callback", zap.Error(aerr))
		}
	}
	metrics.IncUpdate(kind, err != nil)
	if err == nil {
		return
	}

	log.Error("handle update", zap.Error(err))
	reply := textGenericFailure
	if oberr.Is(err, oberr.CodeListingUnavailable) {
		reply = textListingDown
	}
	if serr := b.sender.SendMessage(ctx, req.chatID, reply, nil); serr != nil {
		log.Error("send failure reply", zap.Error(serr))
	}
}

func classify(update telegram.Update) (string, request, string) {
	switch {
	case update.CallbackQuery != nil:
		cq := update.CallbackQuery
		req := request{chatID: cq.From.ID, userID: cq.From.ID, text: cq.Data}
		if cq.Message != nil {
			req.chatID = cq.Message.Chat.ID
		}
		return "callback", req, cq.ID
	case update.Message != nil && update.Message.Text != "":
		msg := update.Message
		req := request{chatID: msg.Chat.ID, userID: msg.Chat.ID, text: strings.TrimSpace(msg.Text)}
		if msg.From != nil {
			req.userID = msg.From.ID
		}
		if strings.HasPrefix(req.text, "/") {
			return "command", req, ""
		}
		return "text", req, ""
	default:
		return "", request{}, ""
	}
}

func (b *Bot) dispatch(ctx context.Context, kind string, req request) error {
	switch kind {
	case "callback":
		return b.handleCallback(ctx, req)
	case "command":
		return b.handleCommand(ctx, req)
	default:
		return b.handleText(ctx, req)
	}
}

func (b *Bot) handleCommand(ctx context.Context, req request) error {
	fields := strings.Fields(req.text)
	name := strings.ToLower(fields[0])
	if at := strings.IndexByte(name, '@'); at > 0 {
		name = name[:at]
	}
	args := fields[1:]

	switch {
	case name == "/start":
		return b.start(ctx, req)
	case name == "/help":
		return b.send(ctx, req.chatID, textHelp, nil)
	case name == "/cancel":
		return b.cancel(ctx, req)
	case name == "/oceans":
		filter := ""
		if len(args) > 0 {
			filter = args[0]
		}
		return b.listOceans(ctx, req, filter)
	case name == "/wallet":
		return b.showWallet(ctx, req)
	case name == "/positions":
		return b.positions(ctx, req)
	case strings.HasPrefix(name, "/o"):
		n, err := strconv.Atoi(strings.TrimPrefix(name, "/o"))
		if err != nil {
			return b.send(ctx, req.chatID, textUnknown, nil)
		}
		amount := ""
		if len(args) > 0 {
			amount = args[0]
		}
		return b.oceanByIndex(ctx, req, n, amount)
	default:
		return b.send(ctx, req.chatID, textUnknown, nil)
	}
}

func (b *Bot) handleCallback(ctx context.Context, req request) error {
	switch {
	case req.text == callbackOceans:
		return b.listOceans(ctx, req, "")
	case req.text == callbackWallet:
		return b.showWallet(ctx, req)
	case req.text == callbackWalletLink:
		return b.linkWallet(ctx, req)
	case req.text == callbackWalletUnlink:
		return b.unlinkWallet(ctx, req)
	case req.text == callbackPositions:
		return b.positions(ctx, req)
	case strings.HasPrefix(req.text, callbackOceanPrefix):
		return b.oceanByAddress(ctx, req, strings.TrimPrefix(req.text, callbackOceanPrefix))
	default:
		return b.send(ctx, req.chatID, textUnknown, nil)
	}
}

// handleText handles free text, which only means something while the user
// is entering a wallet address.
func (b *Bot) handleText(ctx context.Context, req request) error {
	user, err := b.users.User(ctx, req.userID)
	if err != nil {
		return err
	}
	if user.State != model.StateAwaitingWalletAddress {
		return b.send(ctx, req.chatID, textUnknown, nil)
	}
	if err := completeWalletEntry(&user, req.text); err != nil {
		if oberr.Is(err, oberr.CodeInvalidUserInput) {
			return b.send(ctx, req.chatID, textWalletInvalid, nil)
		}
		return err
	}
	if err := b.users.SaveUser(ctx, user); err != nil {
		return err
	}
	return b.send(ctx, req.chatID, textWalletUpdated, mainMenu())
}

func (b *Bot) send(ctx context.Context, chatID int64, text string, markup *telegram.InlineKeyboardMarkup) error {
	return b.sender.SendMessage(ctx, chatID, text, markup)
}

func mainMenu() *telegram.InlineKeyboardMarkup {
	return telegram.Keyboard(
		telegram.Row(buttonOceans, callbackOceans, buttonPositions, callbackPositions),
		telegram.Row(buttonWallet, callbackWallet),
	)
}

func (b *Bot) start(ctx context.Context, req request) error {
	user, err := b.users.User(ctx, req.userID)
	if err != nil {
		return err
	}
	if user.State != model.StateIdle {
		cancel(&user)
		if err := b.users.SaveUser(ctx, user); err != nil {
			return err
		}
	}
	return b.send(ctx, req.chatID, textWelcome, mainMenu())
}

func (b *Bot) cancel(ctx context.Context, req request) error {
	user, err := b.users.User(ctx, req.userID)
	if err != nil {
		return err
	}
	cancel(&user)
	if err := b.users.SaveUser(ctx, user); err != nil {
		return err
	}
	return b.send(ctx, req.chatID, textCancelled, nil)
}

func (b *Bot) listOceans(ctx context.Context, req request, filter string) error {
	if filter != "" && !common.IsHexAddress(filter) {
		return b.send(ctx, req.chatID, textInvalidToken, nil)
	}
	notify := func(ctx context.Context, fresh aggregate.Result) {
		text := textFreshData + "\n\n" + b.renderList(fresh, filter)
		if err := b.send(ctx, req.chatID, text, oceanButtons(fresh.Infos)); err != nil {
			b.logger.Error("send refreshed oceans", zap.Int64("chat", req.chatID), zap.Error(err))
		}
	}
	res, err := b.oceans.GetOceanInfos(ctx, filter, notify)
	if err != nil {
		return err
	}
	return b.send(ctx, req.chatID, b.renderList(res, filter), oceanButtons(res.Infos))
}

// renderList shows /o<N> shortcuts only for the unfiltered list, whose
// positions are what /o<N> addresses.
func (b *Bot) renderList(res aggregate.Result, filter string) string {
	return formatOceanList(res, filter == "", b.now())
}

func oceanButtons(infos []model.OceanInfo) *telegram.InlineKeyboardMarkup {
	if len(infos) == 0 {
		return nil
	}
	rows := make([][]telegram.InlineKeyboardButton, 0, len(infos))
	for _, info := range infos {
		label := fmt.Sprintf("%s · %s", info.Name, percent(info.APR))
		rows = append(rows, telegram.Row(label, callbackOceanPrefix+info.Address))
	}
	return telegram.Keyboard(rows...)
}

func (b *Bot) oceanByIndex(ctx context.Context, req request, n int, amount string) error {
	res, err := b.oceans.GetOceanInfos(ctx, "", nil)
	if err != nil {
		return err
	}
	if n < 1 || n > len(res.Infos) {
		return b.send(ctx, req.chatID, textOceanNotFound, nil)
	}
	delta := 0.0
	if amount != "" {
		d, err := decimal.NewFromString(strings.ReplaceAll(amount, ",", ""))
		if err != nil || d.Sign() <= 0 {
			return b.send(ctx, req.chatID, textInvalidAmount, nil)
		}
		delta = d.InexactFloat64()
	}
	return b.send(ctx, req.chatID, formatOceanDetail(res.Infos[n-1], delta), nil)
}

func (b *Bot) oceanByAddress(ctx context.Context, req request, address string) error {
	res, err := b.oceans.GetOceanInfos(ctx, "", nil)
	if err != nil {
		return err
	}
	for _, info := range res.Infos {
		if strings.EqualFold(info.Address, address) {
			return b.send(ctx, req.chatID, formatOceanDetail(info, 0), nil)
		}
	}
	return b.send(ctx, req.chatID, textOceanNotFound, nil)
}

func (b *Bot) showWallet(ctx context.Context, req request) error {
	user, err := b.users.User(ctx, req.userID)
	if err != nil {
		return err
	}
	if user.Wallet == "" {
		return b.send(ctx, req.chatID, textNoWallet, telegram.Keyboard(telegram.Row(buttonLinkWallet, callbackWalletLink)))
	}
	return b.send(ctx, req.chatID, fmt.Sprintf(textWalletLinked, user.Wallet), telegram.Keyboard(
		telegram.Row(buttonLinkWallet, callbackWalletLink, buttonUnlinkWallet, callbackWalletUnlink),
	))
}

func (b *Bot) linkWallet(ctx context.Context, req request) error {
	user, err := b.users.User(ctx, req.userID)
	if err != nil {
		return err
	}
	beginWalletEntry(&user)
	if err := b.users.SaveUser(ctx, user); err != nil {
		return err
	}
	return b.send(ctx, req.chatID, textEnterWallet, nil)
}

func (b *Bot) unlinkWallet(ctx context.Context, req request) error {
	user, err := b.users.User(ctx, req.userID)
	if err != nil {
		return err
	}
	unlinkWallet(&user)
	if err := b.users.SaveUser(ctx, user); err != nil {
		return err
	}
	return b.send(ctx, req.chatID, textWalletUnlinked, mainMenu())
}

// positions recomputes the user's stake in every cached ocean and stores it
// on the profile.
func (b *Bot) positions(ctx context.Context, req request) error {
	user, err := b.users.User(ctx, req.userID)
	if err != nil {
		return err
	}
	if user.Wallet == "" {
		return b.send(ctx, req.chatID, textNoWallet, telegram.Keyboard(telegram.Row(buttonLinkWallet, callbackWalletLink)))
	}
	res, err := b.oceans.GetOceanInfos(ctx, "", nil)
	if err != nil {
		return err
	}

	wallet := common.HexToAddress(user.Wallet)
	positions := make([]model.Position, 0)
	for _, info := range res.Infos {
		staked, err := b.stakes.UserInfo(ctx, common.HexToAddress(info.Address), common.HexToAddress(info.DepositTokenAddress), wallet)
		if err != nil {
			return err
		}
		if staked.Sign() <= 0 {
			continue
		}
		positions = append(positions, model.Position{
			Pool:         info.Address,
			Name:         info.Name,
			DepositToken: info.DepositToken,
			Staked:       staked,
			ValueUSD:     staked.Mul(decimal.NewFromFloat(info.DepositTokenPrice)).InexactFloat64(),
		})
	}

	user.Positions = positions
	user.PositionsUpdatedAt = b.now().Unix()
	if err := b.users.SaveUser(ctx, user); err != nil {
		return err
	}
	return b.send(ctx, req.chatID, formatPositions(user), nil)
}
