package bot

import (
	"context"
	"fmt"
	"math/rand"

	"github.com/bwmarrin/discordgo"

	"github.com/betterhood/hoodbot/internal/format"
	"github.com/betterhood/hoodbot/internal/services"
)

func (b *Bot) cmdGamble(ctx context.Context, m *discordgo.Message, args []string) error {
	if len(args) < 1 {
		return services.Reject("Please enter the amount you would like to gamble.")
	}
	stake, err := parseAmount(args[0])
	if err != nil {
		return err
	}

	won, err := b.economy.Gamble(ctx, m.Author.ID, stake)
	if err != nil {
		return err
	}
	b.metrics.GambleResult(won)
	b.metrics.TransactionCommitted("gamble", stake)

	var embed *discordgo.MessageEmbed
	if won {
		embed = newEmbed("Game Result",
			fmt.Sprintf("You won %s! It's been added to your wallet.", format.Money(stake)),
			successEmbedColor)
	} else {
		embed = newEmbed("Game Result",
			fmt.Sprintf("You lost %s. It has been taken from your wallet.", format.Money(stake)),
			errorEmbedColor)
	}
	_, err = b.replyEmbed(m, embed)
	return err
}

var stealSituations = []string{
	"sneaking into their room while they were asleep",
	"hacking their digital wallet",
	"picking their pocket in a crowded market",
	"conning them with a fake charity",
	"distracting them with a street performance",
	"tricking them during a card game",
	"slipping away with their bag at the gym",
	"posing as a valet and taking their valuables",
	"setting up a fake toll booth",
	"creating a diversion at a cafe",
}

var stealFailSituations = []string{
	"during the escape, you tripped and were caught",
	"the target noticed and confronted you immediately",
	"a nearby security camera caught the entire act",
	"the target's friends intervened just in time",
	"a sudden call from the target's phone interrupted your attempt",
	"a sudden rainstorm ruined your escape plan",
	"the target's pet dog started barking loudly",
	"a sudden earthquake shook the ground",
	"a sudden power outage occurred",
}

func (b *Bot) cmdSteal(ctx context.Context, m *discordgo.Message, args []string) error {
	if len(args) < 1 {
		return services.Reject("Please mention the user you would like to steal from.")
	}
	victimID, ok := parseUserMention(args[0])
	if !ok {
		return services.Reject("Please mention a valid user.")
	}

	remaining, err := b.cooldowns.Hit(ctx, "steal", m.Author.ID, services.StealCooldown)
	if err != nil {
		return err
	}
	if remaining > 0 {
		return services.Reject("You can steal again in %s.", format.Duration(remaining))
	}

	result, err := b.economy.Steal(ctx, m.Author.ID, victimID)
	if err != nil {
		// A failed steal should not burn the cooldown.
		b.cooldowns.Reset(ctx, "steal", m.Author.ID)
		return err
	}

	var embed *discordgo.MessageEmbed
	switch result.Outcome {
	case services.StealSuccess:
		b.metrics.TransactionCommitted("steal", result.Amount)
		embed = newEmbed("Successful Steal!",
			fmt.Sprintf("You successfully stole %s by %s.",
				format.Money(result.Amount), stealSituations[rand.Intn(len(stealSituations))]),
			successEmbedColor)
	case services.StealLostWallet:
		embed = newEmbed("Caught!",
			fmt.Sprintf("Caught! You lost %s from your wallet %s.",
				format.Money(result.Amount), stealFailSituations[rand.Intn(len(stealFailSituations))]),
			errorEmbedColor)
	case services.StealCaughtByVictim:
		embed = newEmbed("Caught by Victim!",
			"Caught by the victim! They took all the money in your wallet.",
			errorEmbedColor)
	case services.StealCaughtByPolice:
		embed = newEmbed("Caught by Police!",
			fmt.Sprintf("Caught by the police! You've lost all your wallet money and %s from your bank.",
				format.Money(result.BankPenalty)),
			errorEmbedColor)
	}

	_, err = b.replyEmbed(m, embed)
	return err
}
