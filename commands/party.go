package commands

import (
	"fmt"
	"strconv"
	"strings"

	server "courtmux/server"
)

// buildPartyTable exposes the party system as one /party command with
// subcommands, plus /pc for party chat.
func (d *Dispatcher) buildPartyTable() map[string]oocCommand {
	return map[string]oocCommand{
		"party": {usage: "/party <create|join|leave|list|kick|invite|lock|unlock|role|vote|tally|notepad|disband>", fn: func(d *Dispatcher, c *server.Client, arg string) error {
			sub, rest := splitCommand(arg)
			switch sub {
			case "create":
				p, err := d.world.CreateParty(c, rest)
				if err != nil {
					return err
				}
				c.SendOOC(fmt.Sprintf("Party %s created (id %d). You are the leader.", p.Name(), p.ID()))
				return nil
			case "join":
				id, err := strconv.Atoi(rest)
				if err != nil {
					return server.ArgumentErr("Use /party join <id>.")
				}
				p, err := d.world.PartyByID(id)
				if err != nil {
					return err
				}
				return d.world.JoinParty(c, p)
			case "leave":
				if c.Party() == nil {
					return server.ClientErr("You are not in a party.")
				}
				d.world.LeaveParty(c)
				c.SendOOC("You left the party.")
				return nil
			case "list", "":
				parties := d.world.Parties()
				if len(parties) == 0 {
					c.SendOOC("No parties exist.")
					return nil
				}
				var b strings.Builder
				b.WriteString("=== Parties ===")
				for _, p := range parties {
					leader := p.Leader()
					fmt.Fprintf(&b, "\r\n[%d] %s (%d members, leader [%d] %s)", p.ID(), p.Name(), len(p.Members()), leader.ID(), leader.Showname())
				}
				c.SendOOC(b.String())
				return nil
			case "kick":
				p := c.Party()
				if p == nil {
					return server.ClientErr("You are not in a party.")
				}
				target, err := d.world.Registry().ResolveOne(c, server.TargetID, rest, false)
				if err != nil {
					return err
				}
				return p.Kick(c, target)
			case "invite":
				p := c.Party()
				if p == nil {
					return server.ClientErr("You are not in a party.")
				}
				target, err := d.world.Registry().ResolveOne(c, server.TargetID, rest, false)
				if err != nil {
					return err
				}
				if err := p.InviteToParty(c, target.ID()); err != nil {
					return err
				}
				target.SendOOC(fmt.Sprintf("You were invited to party %s. Use /party join %d.", p.Name(), p.ID()))
				return nil
			case "lock", "unlock":
				p := c.Party()
				if p == nil {
					return server.ClientErr("You are not in a party.")
				}
				return p.SetLocked(c, sub == "lock")
			case "role":
				p := c.Party()
				if p == nil {
					return server.ClientErr("You are not in a party.")
				}
				parts := strings.SplitN(rest, " ", 2)
				if len(parts) < 2 {
					return server.ArgumentErr("Use /party role <id> <role>.")
				}
				target, err := d.world.Registry().ResolveOne(c, server.TargetID, parts[0], false)
				if err != nil {
					return err
				}
				return p.SetRole(c, target, parts[1])
			case "vote":
				p := c.Party()
				if p == nil {
					return server.ClientErr("You are not in a party.")
				}
				target, err := d.world.Registry().ResolveOne(c, server.TargetID, rest, false)
				if err != nil {
					return err
				}
				if err := p.Vote(c, target); err != nil {
					return err
				}
				c.SendOOC(fmt.Sprintf("You voted for [%d] %s.", target.ID(), target.Showname()))
				return nil
			case "tally":
				p := c.Party()
				if p == nil {
					return server.ClientErr("You are not in a party.")
				}
				tally := p.VoteTally()
				if len(tally) == 0 {
					c.SendOOC("No votes have been cast.")
					return nil
				}
				var b strings.Builder
				b.WriteString("=== Votes ===")
				for candidate, n := range tally {
					fmt.Fprintf(&b, "\r\n[%d] %s: %d", candidate.ID(), candidate.Showname(), n)
				}
				c.SendOOC(b.String())
				return nil
			case "notepad":
				p := c.Party()
				if p == nil {
					return server.ClientErr("You are not in a party.")
				}
				if rest == "" {
					pad := p.Notepad()
					if pad == "" {
						pad = "The notepad is empty."
					}
					c.SendOOC("=== Party notepad ===\r\n" + pad)
					return nil
				}
				if rest == "clear" {
					return p.ClearNotepad(c)
				}
				return p.AppendNotepad(fmt.Sprintf("[%s] %s", c.Showname(), rest))
			case "disband":
				p := c.Party()
				if p == nil {
					return server.ClientErr("You are not in a party.")
				}
				return d.world.DestroyParty(c, p)
			default:
				return server.ArgumentErr("Unknown /party subcommand %q.", sub)
			}
		}},
		"pc": {usage: "/pc <message>", fn: func(_ *Dispatcher, c *server.Client, arg string) error {
			p := c.Party()
			if p == nil {
				return server.ClientErr("You are not in a party.")
			}
			if arg == "" {
				return server.ArgumentErr("Use /pc <message>.")
			}
			p.Broadcast(fmt.Sprintf("[%d] %s: %s", c.ID(), c.Showname(), arg))
			return nil
		}},
	}
}
