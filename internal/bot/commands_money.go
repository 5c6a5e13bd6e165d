package bot

import (
	"context"
	"fmt"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"

	"github.com/betterhood/hoodbot/internal/format"
	"github.com/betterhood/hoodbot/internal/services"
)

func (b *Bot) cmdBalance(ctx context.Context, m *discordgo.Message, args []string) error {
	targetID := m.Author.ID
	title := "Your balance:"
	if len(args) > 0 {
		id, ok := parseUserMention(args[0])
		if !ok {
			return services.Reject("Please enter a valid user.")
		}
		if id != m.Author.ID {
			targetID = id
			title = fmt.Sprintf("<@%s>'s balance:", id)
		}
	}

	account, err := b.economy.Balance(ctx, targetID)
	if err != nil {
		return err
	}

	embed := newEmbed(title, "", mainEmbedColor)
	embed.Fields = []*discordgo.MessageEmbedField{
		{Name: "💰Wallet", Value: format.Money(account.Wallet)},
		{Name: "🏦Bank", Value: format.Money(account.Bank)},
	}
	_, err = b.replyEmbed(m, embed)
	return err
}

func (b *Bot) cmdDeposit(ctx context.Context, m *discordgo.Message, args []string) error {
	if len(args) < 1 {
		return services.Reject("Please specify an amount to deposit.")
	}
	amount, err := parseAmount(args[0])
	if err != nil {
		return err
	}

	if err := b.economy.Deposit(ctx, m.Author.ID, amount); err != nil {
		return err
	}
	b.metrics.TransactionCommitted("deposit", amount)

	_, err = b.replyEmbed(m, successEmbed(
		fmt.Sprintf("You have successfully deposited %s.", format.Money(amount))))
	return err
}

func (b *Bot) cmdWithdraw(ctx context.Context, m *discordgo.Message, args []string) error {
	if len(args) < 1 {
		return services.Reject("Please specify an amount to withdraw.")
	}
	amount, err := parseAmount(args[0])
	if err != nil {
		return err
	}

	if err := b.economy.Withdraw(ctx, m.Author.ID, amount); err != nil {
		return err
	}
	b.metrics.TransactionCommitted("withdraw", amount)

	_, err = b.replyEmbed(m, successEmbed(
		fmt.Sprintf("You have successfully withdrawn %s.", format.Money(amount))))
	return err
}

func (b *Bot) cmdGive(ctx context.Context, m *discordgo.Message, args []string) error {
	if len(args) < 2 {
		return services.Reject("Please specify a user and an amount to give.")
	}
	targetID, ok := parseUserMention(args[0])
	if !ok {
		return services.Reject("Please mention the user you would like to give money to.")
	}
	amount, err := parseAmount(args[1])
	if err != nil {
		return err
	}

	remaining, err := b.cooldowns.Hit(ctx, "give", m.Author.ID, services.GiveCooldown)
	if err != nil {
		return err
	}
	if remaining > 0 {
		return services.Reject("You've already given someone money recently. Try again in %s.",
			format.Duration(remaining))
	}

	if err := b.economy.Give(ctx, m.Author.ID, targetID, amount); err != nil {
		// A failed give should not burn the cooldown.
		b.cooldowns.Reset(ctx, "give", m.Author.ID)
		return err
	}
	b.metrics.TransactionCommitted("give", amount)

	_, err = b.replyEmbed(m, successEmbed(
		fmt.Sprintf("You have successfully given %s to <@%s>.", format.Money(amount), targetID)))
	return err
}

func (b *Bot) cmdDaily(ctx context.Context, m *discordgo.Message, args []string) error {
	reward, err := b.economy.Daily(ctx, m.Author.ID)
	if err != nil {
		return err
	}
	b.metrics.TransactionCommitted("daily", reward)

	_, err = b.replyEmbed(m, newEmbed("Daily Reward",
		fmt.Sprintf("You have successfully claimed your daily reward of %s. It is available in your bank.",
			format.Money(reward)),
		successEmbedColor))
	return err
}

// cmdTransfer proposes a taxed bank-to-bank transfer and commits it only
// after the requester confirms within the timeout. The cooldown is reverted
// whenever the transfer does not commit.
func (b *Bot) cmdTransfer(ctx context.Context, m *discordgo.Message, args []string) error {
	if len(args) < 2 {
		return services.Reject("Please specify a user and an amount to transfer.")
	}
	targetID, ok := parseUserMention(args[0])
	if !ok {
		return services.Reject("Invalid user or amount specified.")
	}
	if targetID == m.Author.ID {
		return services.Reject("You cannot transfer money to yourself!")
	}
	amount, err := parseAmount(args[1])
	if err != nil {
		return err
	}

	remaining, err := b.cooldowns.Hit(ctx, "transfer", m.Author.ID, services.TransferCooldown)
	if err != nil {
		return err
	}
	if remaining > 0 {
		return services.Reject("You've already transferred money recently. Try again in %s.",
			format.Duration(remaining))
	}

	if err := b.economy.TransferCheck(ctx, m.Author.ID, amount); err != nil {
		b.cooldowns.Reset(ctx, "transfer", m.Author.ID)
		return err
	}

	tax, net := services.TransferQuote(amount)
	prompt := newEmbed("Transfer Confirmation",
		fmt.Sprintf("Transferring %s from <@%s> to <@%s>\nTax: %s (%d%%)\nAmount after tax: %s",
			format.Money(amount), m.Author.ID, targetID,
			format.Money(tax), services.TransferTaxPercent, format.Money(net)),
		mainEmbedColor)
	prompt.Footer = &discordgo.MessageEmbedFooter{
		Text: fmt.Sprintf("React with %s to confirm or %s to cancel.", confirmEmoji, cancelEmoji),
	}

	message, err := b.replyEmbed(m, prompt)
	if err != nil {
		b.cooldowns.Reset(ctx, "transfer", m.Author.ID)
		return err
	}
	b.session.MessageReactionAdd(message.ChannelID, message.ID, confirmEmoji)
	b.session.MessageReactionAdd(message.ChannelID, message.ID, cancelEmoji)

	pending := b.confirms.Arm(message.ID, m.Author.ID)
	defer b.confirms.Discard(message.ID)

	outcome := pending.Await(ctx, ConfirmTimeout)
	switch outcome {
	case Confirmed:
		receipt, err := b.economy.Transfer(ctx, m.Author.ID, targetID, amount)
		if err != nil {
			b.cooldowns.Reset(ctx, "transfer", m.Author.ID)
			if rejection, rejected := services.AsRejection(err); rejected {
				b.editEmbed(message.ChannelID, message.ID, errorEmbed(rejection))
				b.clearReactions(message)
				return nil
			}
			b.editEmbed(message.ChannelID, message.ID,
				errorEmbed("Something went wrong while processing the transfer. Please try again later."))
			b.clearReactions(message)
			return err
		}
		b.metrics.TransactionCommitted("transfer", receipt.Amount)
		b.editEmbed(message.ChannelID, message.ID, newEmbed("Transfer Successful",
			fmt.Sprintf("Successfully transferred %s to <@%s> after a %s tax deduction.",
				format.Money(receipt.Net), targetID, format.Money(receipt.Tax)),
			successEmbedColor))

	case Cancelled:
		b.cooldowns.Reset(ctx, "transfer", m.Author.ID)
		b.editEmbed(message.ChannelID, message.ID, newEmbed("Transfer Cancelled",
			"The transfer has been cancelled.", errorEmbedColor))

	case ConfirmTimedOut:
		b.cooldowns.Reset(ctx, "transfer", m.Author.ID)
		b.editEmbed(message.ChannelID, message.ID, newEmbed("Transfer Timed Out",
			"No reaction received in 30 seconds, the transfer has been automatically cancelled.",
			errorEmbedColor))
	}

	b.clearReactions(message)
	return nil
}

func (b *Bot) clearReactions(message *discordgo.Message) {
	if err := b.session.MessageReactionsRemoveAll(message.ChannelID, message.ID); err != nil {
		b.log.Debug("failed to clear reactions", zap.Error(err))
	}
}
