package discord

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/example/modmail/internal/ports/secondary"
)

// Custom IDs carry the action plus whatever the handler needs to validate
// the interaction without process state, so controls keep working across
// restarts. Format: "modmail:<action>[:<arg>:<issuedUnix>]".
const (
	customIDPrefix = "modmail"

	actionClaim        = "claim"
	actionTransfer     = "transfer"
	actionTransferPick = "transferpick"
	actionClose        = "close"
	actionCategory     = "category"
	actionRate         = "rate"
)

// interactionID is a decoded component custom ID.
type interactionID struct {
	Action   string
	Arg      string    // user ID for category menus, thread ID for rating menus
	IssuedAt time.Time // zero for lifecycle buttons
}

func encodeCustomID(action string) string {
	return customIDPrefix + ":" + action
}

func encodeBoundCustomID(action, arg string, issuedAt time.Time) string {
	return fmt.Sprintf("%s:%s:%s:%d", customIDPrefix, action, arg, issuedAt.Unix())
}

// parseCustomID decodes a component custom ID. Returns false for IDs that
// do not belong to this bot.
func parseCustomID(raw string) (interactionID, bool) {
	parts := strings.Split(raw, ":")
	if len(parts) < 2 || parts[0] != customIDPrefix {
		return interactionID{}, false
	}

	id := interactionID{Action: parts[1]}
	switch id.Action {
	case actionClaim, actionTransfer, actionTransferPick, actionClose:
		if len(parts) != 2 {
			return interactionID{}, false
		}
		return id, true
	case actionCategory, actionRate:
		if len(parts) != 4 {
			return interactionID{}, false
		}
		unix, err := strconv.ParseInt(parts[3], 10, 64)
		if err != nil {
			return interactionID{}, false
		}
		id.Arg = parts[2]
		id.IssuedAt = time.Unix(unix, 0)
		return id, true
	default:
		return interactionID{}, false
	}
}

// componentsFor renders a control into Discord message components.
func componentsFor(ctrl secondary.Control) []discordgo.MessageComponent {
	switch ctrl.Kind {
	case secondary.ControlLifecycle:
		return []discordgo.MessageComponent{discordgo.ActionsRow{
			Components: []discordgo.MessageComponent{
				discordgo.Button{
					Label:    "📌 Claim",
					Style:    discordgo.PrimaryButton,
					CustomID: encodeCustomID(actionClaim),
				},
				discordgo.Button{
					Label:    "🔁 Transfer",
					Style:    discordgo.SecondaryButton,
					CustomID: encodeCustomID(actionTransfer),
				},
				discordgo.Button{
					Label:    "🔒 Close",
					Style:    discordgo.DangerButton,
					CustomID: encodeCustomID(actionClose),
				},
			},
		}}

	case secondary.ControlCategorySelect:
		options := make([]discordgo.SelectMenuOption, len(ctrl.Options))
		for i, o := range ctrl.Options {
			options[i] = discordgo.SelectMenuOption{Label: o.Label, Value: o.Value}
		}
		return []discordgo.MessageComponent{discordgo.ActionsRow{
			Components: []discordgo.MessageComponent{
				discordgo.SelectMenu{
					MenuType:    discordgo.StringSelectMenu,
					CustomID:    encodeBoundCustomID(actionCategory, ctrl.UserID, ctrl.IssuedAt),
					Placeholder: "Choose a category",
					Options:     options,
				},
			},
		}}

	case secondary.ControlTransferSelect:
		options := make([]discordgo.SelectMenuOption, len(ctrl.Options))
		for i, o := range ctrl.Options {
			options[i] = discordgo.SelectMenuOption{Label: o.Label, Value: o.Value}
		}
		return []discordgo.MessageComponent{discordgo.ActionsRow{
			Components: []discordgo.MessageComponent{
				discordgo.SelectMenu{
					MenuType:    discordgo.StringSelectMenu,
					CustomID:    encodeCustomID(actionTransferPick),
					Placeholder: "Choose a staff member",
					Options:     options,
				},
			},
		}}

	case secondary.ControlRatingSelect:
		options := make([]discordgo.SelectMenuOption, 0, 5)
		for score := 1; score <= 5; score++ {
			options = append(options, discordgo.SelectMenuOption{
				Label: strings.Repeat("⭐", score),
				Value: strconv.Itoa(score),
			})
		}
		return []discordgo.MessageComponent{discordgo.ActionsRow{
			Components: []discordgo.MessageComponent{
				discordgo.SelectMenu{
					MenuType:    discordgo.StringSelectMenu,
					CustomID:    encodeBoundCustomID(actionRate, ctrl.ThreadID, ctrl.IssuedAt),
					Placeholder: "Rate the support you received",
					Options:     options,
				},
			},
		}}

	default:
		return nil
	}
}
