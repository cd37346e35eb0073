package commands

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	server "courtmux/server"
	"courtmux/server/logging"
	logmod "courtmux/server/logging/moderation"
)

// buildModTable holds the commands that always require moderator login.
func (d *Dispatcher) buildModTable() map[string]oocCommand {
	return map[string]oocCommand{
		"kick": {modOnly: true, usage: "/kick <ipid or id> [reason]", fn: func(d *Dispatcher, c *server.Client, arg string) error {
			parts := strings.SplitN(arg, " ", 2)
			if parts[0] == "" {
				return server.ArgumentErr("Use /kick <ipid or id> [reason].")
			}
			reason := "No reason given."
			if len(parts) > 1 {
				reason = parts[1]
			}
			targets, err := d.world.Registry().Resolve(c, server.TargetIPID, parts[0], false)
			if err != nil {
				return err
			}
			if len(targets) == 0 {
				if one, oerr := d.world.Registry().ResolveOne(c, server.TargetID, parts[0], false); oerr == nil {
					targets = []*server.Client{one}
				}
			}
			if len(targets) == 0 {
				return server.ClientErr("No targets found.")
			}
			for _, t := range targets {
				logmod.Kick(context.Background(), d.pub,
					logging.SessionRef(strconv.Itoa(c.ID())),
					logging.SessionRef(strconv.Itoa(t.ID())),
					t.Hub().Name(), t.Area().Name(), reason)
				t.Send(server.CmdKicked, reason)
				d.world.Registry().Disconnect(t)
			}
			c.SendOOC(fmt.Sprintf("Kicked %d client(s).", len(targets)))
			return nil
		}},
		"mute": {modOnly: true, usage: "/mute <id>", fn: muteCommand(true)},
		"unmute": {modOnly: true, usage: "/unmute <id>", fn: muteCommand(false)},
		"oocmute": {modOnly: true, usage: "/oocmute <id>", fn: func(d *Dispatcher, c *server.Client, arg string) error {
			target, err := d.world.Registry().ResolveOne(c, server.TargetID, arg, false)
			if err != nil {
				return err
			}
			target.SetOOCMuted(true)
			c.SendOOC(fmt.Sprintf("[%d] %s was OOC-muted.", target.ID(), target.Showname()))
			return nil
		}},
		"oocunmute": {modOnly: true, usage: "/oocunmute <id>", fn: func(d *Dispatcher, c *server.Client, arg string) error {
			target, err := d.world.Registry().ResolveOne(c, server.TargetID, arg, false)
			if err != nil {
				return err
			}
			target.SetOOCMuted(false)
			c.SendOOC(fmt.Sprintf("[%d] %s was OOC-unmuted.", target.ID(), target.Showname()))
			return nil
		}},
		"blockdj": {modOnly: true, usage: "/blockdj <id>", fn: func(d *Dispatcher, c *server.Client, arg string) error {
			target, err := d.world.Registry().ResolveOne(c, server.TargetID, arg, false)
			if err != nil {
				return err
			}
			target.SetDJ(false)
			target.SendOOC("A moderator revoked your music permissions.")
			return nil
		}},
		"unblockdj": {modOnly: true, usage: "/unblockdj <id>", fn: func(d *Dispatcher, c *server.Client, arg string) error {
			target, err := d.world.Registry().ResolveOne(c, server.TargetID, arg, false)
			if err != nil {
				return err
			}
			target.SetDJ(true)
			target.SendOOC("A moderator restored your music permissions.")
			return nil
		}},
		"blind": {modOnly: true, usage: "/blind <id>", fn: blindCommand(true)},
		"unblind": {modOnly: true, usage: "/unblind <id>", fn: blindCommand(false)},
		"player_hide": {modOnly: true, usage: "/player_hide <id>", fn: func(d *Dispatcher, c *server.Client, arg string) error {
			target, err := d.world.Registry().ResolveOne(c, server.TargetID, arg, false)
			if err != nil {
				return err
			}
			target.SetHidden(true)
			return nil
		}},
		"player_unhide": {modOnly: true, usage: "/player_unhide <id>", fn: func(d *Dispatcher, c *server.Client, arg string) error {
			target, err := d.world.Registry().ResolveOne(c, server.TargetID, arg, false)
			if err != nil {
				return err
			}
			target.SetHidden(false)
			return nil
		}},
		"charcurse": {modOnly: true, usage: "/charcurse <id> <char ids>", fn: func(d *Dispatcher, c *server.Client, arg string) error {
			parts := strings.Fields(arg)
			if len(parts) < 2 {
				return server.ArgumentErr("Use /charcurse <id> <char id> [char id ...].")
			}
			target, err := d.world.Registry().ResolveOne(c, server.TargetID, parts[0], false)
			if err != nil {
				return err
			}
			var charIDs []int
			for _, raw := range parts[1:] {
				id, aerr := strconv.Atoi(raw)
				if aerr != nil || !d.world.Roster().Valid(id) {
					return server.ArgumentErr("%s is not a valid character ID.", raw)
				}
				charIDs = append(charIDs, id)
			}
			target.Charcurse(charIDs)
			target.SendOOC("You were charcursed by a moderator.")
			c.SendOOC(fmt.Sprintf("[%d] %s was charcursed.", target.ID(), target.Showname()))
			return nil
		}},
		"uncharcurse": {modOnly: true, usage: "/uncharcurse <id>", fn: func(d *Dispatcher, c *server.Client, arg string) error {
			target, err := d.world.Registry().ResolveOne(c, server.TargetID, arg, false)
			if err != nil {
				return err
			}
			if err := target.Uncharcurse(); err != nil {
				return err
			}
			target.SendOOC("Your charcurse was lifted.")
			return nil
		}},
		"move_delay": {modOnly: true, usage: "/move_delay <char id> <seconds>", fn: func(d *Dispatcher, c *server.Client, arg string) error {
			parts := strings.Fields(arg)
			if len(parts) != 2 {
				return server.ArgumentErr("Use /move_delay <char id> <seconds>.")
			}
			charID, err1 := strconv.Atoi(parts[0])
			seconds, err2 := strconv.Atoi(parts[1])
			if err1 != nil || err2 != nil {
				return server.ArgumentErr("Use /move_delay <char id> <seconds>.")
			}
			if !d.world.Roster().Valid(charID) {
				return server.ArgumentErr("%s is not a valid character ID.", parts[0])
			}
			c.Hub().SetCharacterMoveDelay(charID, seconds)
			c.SendOOC(fmt.Sprintf("Move delay for %s is now %d seconds in this hub.", d.world.Roster().Name(charID), c.Hub().CharacterMoveDelay(charID)))
			return nil
		}},
		"arup": {modOnly: true, fn: func(_ *Dispatcher, c *server.Client, _ string) error {
			hub := c.Hub()
			on := !hub.ARUPEnabled()
			hub.SetARUPEnabled(on)
			state := "disabled"
			if on {
				state = "enabled"
			}
			c.SendOOC("ARUP broadcasting " + state + " for this hub.")
			return nil
		}},
		"lock_hub": {modOnly: true, fn: func(_ *Dispatcher, c *server.Client, _ string) error {
			hub := c.Hub()
			on := !hub.Locked()
			hub.SetLocked(on)
			state := "unlocked"
			if on {
				state = "locked"
			}
			c.SendOOC("Hub " + state + ".")
			return nil
		}},
	}
}

func muteCommand(on bool) func(*Dispatcher, *server.Client, string) error {
	return func(d *Dispatcher, c *server.Client, arg string) error {
		target, err := d.world.Registry().ResolveOne(c, server.TargetID, arg, false)
		if err != nil {
			return err
		}
		target.SetMuted(on)
		state := "unmuted"
		if on {
			state = "muted"
		}
		target.SendOOC("You were " + state + " by a moderator.")
		c.SendOOC(fmt.Sprintf("[%d] %s was %s.", target.ID(), target.Showname(), state))
		return nil
	}
}

func blindCommand(on bool) func(*Dispatcher, *server.Client, string) error {
	return func(d *Dispatcher, c *server.Client, arg string) error {
		target, err := d.world.Registry().ResolveOne(c, server.TargetID, arg, false)
		if err != nil {
			return err
		}
		target.Blind(on)
		return nil
	}
}
