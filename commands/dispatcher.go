// Package commands turns decoded wire frames and OOC slash commands into
// operations on the world graph. Every rejection an operation returns is
// rendered back to the issuing session as an OOC line; server-side faults
// are logged and masked.
package commands

import (
	"context"
	"fmt"
	"log"
	"strconv"
	"strings"

	server "courtmux/server"
	"courtmux/server/logging"
	logmod "courtmux/server/logging/moderation"
)

// Version is reported during the handshake.
const Version = "1.0.0"

// Dispatcher routes frames for every session. Safe for concurrent use;
// all state lives in the world.
type Dispatcher struct {
	world    *server.World
	pub      logging.Publisher
	logger   *log.Logger
	musicDir string
	ooc      map[string]oocCommand
}

// New builds a dispatcher. musicDir is where personal music lists are
// looked up; empty disables /musiclist.
func New(world *server.World, pub logging.Publisher, logger *log.Logger, musicDir string) *Dispatcher {
	if pub == nil {
		pub = logging.NopPublisher()
	}
	if logger == nil {
		logger = log.Default()
	}
	d := &Dispatcher{world: world, pub: pub, logger: logger, musicDir: musicDir}
	d.ooc = d.buildOOCTable()
	return d
}

// Welcome starts the handshake for a fresh session.
func (d *Dispatcher) Welcome(c *server.Client) {
	c.Send("ID", strconv.Itoa(c.ID()), "courtmux", Version)
	c.Send(server.CmdPlayerCount, strconv.Itoa(d.world.PlayerCount()), strconv.Itoa(d.world.Config().PlayerLimit))
}

// HandleFrame consumes one decoded frame from the session.
func (d *Dispatcher) HandleFrame(c *server.Client, name string, args []string) {
	var err error
	switch name {
	case "HI":
		if len(args) > 0 {
			c.SetHDID(args[0])
		}
		c.Send("FL", "yellowtext", "flipping", "customobjections", "fastloading", "noencryption", "deskmod", "evidence", "cccc_ic_support", "arup", "casing_alerts", "modcall_reason", "looping_sfx", "additive", "effects", "y_offset", "expanded_desk_mods")
	case "ID":
		// Client software and version; nothing to do with it.
	case "askchaa":
		c.Send(server.CmdServerInfo,
			strconv.Itoa(d.world.Roster().Len()),
			"0",
			strconv.Itoa(len(d.world.MusicCatalog().Flatten())))
	case "RC":
		c.Send(server.CmdCharList, d.world.Roster().Names()...)
	case "RM":
		c.Send(server.CmdMusicCatalog, d.world.MusicCatalog().Flatten()...)
	case "RD":
		c.SendDone()
		c.SendMOTD()
		c.SendHubInfo()
		c.SendPlayerCount()
		if lerr := c.LoadFriends(); lerr != nil {
			d.logger.Printf("friends load failed for %s: %v", c.IPID(), lerr)
		}
	case "CC":
		if len(args) < 2 {
			return
		}
		id, aerr := strconv.Atoi(args[1])
		if aerr != nil {
			return
		}
		err = c.ChangeCharacter(id, false)
	case "MC":
		if len(args) == 0 {
			return
		}
		if area, ferr := c.Hub().FindArea(args[0]); ferr == nil {
			err = c.ChangeArea(area)
			break
		}
		effects := 0
		if len(args) >= 4 {
			effects, _ = strconv.Atoi(args[3])
		}
		err = c.ChangeMusic(args[0], effects)
	case "MS":
		err = c.RelayIC(args)
	case "CT":
		if len(args) < 2 {
			return
		}
		c.SetName(args[0])
		err = d.handleOOC(c, args[0], args[1])
	case "HP":
		if len(args) < 2 {
			return
		}
		side, _ := strconv.Atoi(args[0])
		value, _ := strconv.Atoi(args[1])
		err = c.Area().SetHP(side, value)
	case "RT":
		err = c.RelayWTCE(args)
	case "PE":
		if len(args) < 3 {
			return
		}
		c.Area().AddEvidence(server.Evidence{Name: args[0], Desc: args[1], Image: args[2], Pos: server.EvidencePosAll, CanHide: true})
	case "DE":
		if len(args) < 1 {
			return
		}
		idx, _ := strconv.Atoi(args[0])
		err = c.Area().RemoveEvidence(idx)
	case "EE":
		if len(args) < 4 {
			return
		}
		idx, _ := strconv.Atoi(args[0])
		err = c.Area().EditEvidence(idx, server.Evidence{Name: args[1], Desc: args[2], Image: args[3], Pos: server.EvidencePosAll, CanHide: true})
	case "ZZ":
		reason := ""
		if len(args) > 0 {
			reason = args[0]
		}
		d.modcall(c, reason)
	case "CH":
		c.Send(server.CmdKeepalive)
	default:
		d.logger.Printf("unknown frame %q from session %d", name, c.ID())
	}
	if err != nil {
		d.reportError(c, err)
	}
}

// modcall alerts every online moderator.
func (d *Dispatcher) modcall(c *server.Client, reason string) {
	area := c.Area()
	alert := fmt.Sprintf("[%d] %s called for a moderator in %s (%s): %s",
		c.ID(), c.Showname(), area.Name(), c.Hub().Name(), reason)
	for _, other := range d.world.Registry().All() {
		if other.IsMod() {
			other.Send(server.CmdModAlert, alert)
		}
	}
	c.SendOOC("Moderators were alerted.")
	logmod.Modcall(context.Background(), d.pub,
		logging.SessionRef(strconv.Itoa(c.ID())),
		c.Hub().Name(), area.Name(), reason)
}

// reportError renders an operation failure back to the issuer. Internal
// faults never leak their detail.
func (d *Dispatcher) reportError(c *server.Client, err error) {
	if server.IsKind(err, server.KindServer) {
		d.logger.Printf("internal error for session %d: %v", c.ID(), err)
		c.SendOOC("An internal error occurred. The staff has been notified.")
		return
	}
	c.SendOOC(err.Error())
}

func splitCommand(msg string) (string, string) {
	msg = strings.TrimPrefix(msg, "/")
	if i := strings.IndexByte(msg, ' '); i >= 0 {
		return strings.ToLower(msg[:i]), strings.TrimSpace(msg[i+1:])
	}
	return strings.ToLower(msg), ""
}
