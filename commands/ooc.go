package commands

import (
	"context"
	"fmt"
	"math/rand"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	server "courtmux/server"
	"courtmux/server/logging"
	logmod "courtmux/server/logging/moderation"
)

type oocCommand struct {
	modOnly bool
	usage   string
	fn      func(d *Dispatcher, c *server.Client, arg string) error
}

// handleOOC routes one OOC line: plain chat goes to the area, a leading
// slash goes through the command table.
func (d *Dispatcher) handleOOC(c *server.Client, name, msg string) error {
	if !strings.HasPrefix(msg, "/") {
		if name == "" {
			return server.ArgumentErr("You must set a name before talking in OOC.")
		}
		if c.OOCMuted() {
			return server.ClientErr("You are OOC-muted by a moderator.")
		}
		c.Area().BroadcastChat(name, msg)
		return nil
	}
	cmdName, arg := splitCommand(msg)
	cmd, ok := d.ooc[cmdName]
	if !ok {
		return server.ArgumentErr("Unknown command /%s. Use /help for a list.", cmdName)
	}
	if cmd.modOnly && !c.IsMod() {
		return server.ClientErr("You must be logged in as a moderator to do that.")
	}
	return cmd.fn(d, c, arg)
}

func (d *Dispatcher) buildOOCTable() map[string]oocCommand {
	t := map[string]oocCommand{
		"help": {fn: func(d *Dispatcher, c *server.Client, _ string) error {
			names := make([]string, 0, len(d.ooc))
			for name := range d.ooc {
				names = append(names, "/"+name)
			}
			c.SendOOC("Available commands: " + strings.Join(sortedStrings(names), " "))
			return nil
		}},
		"motd": {fn: func(_ *Dispatcher, c *server.Client, _ string) error {
			c.SendMOTD()
			return nil
		}},
		"players": {fn: func(_ *Dispatcher, c *server.Client, _ string) error {
			c.SendPlayerCount()
			return nil
		}},
		"area": {fn: func(_ *Dispatcher, c *server.Client, arg string) error {
			if arg == "" {
				c.SendOOC(c.AreaListText(c.IsMod() || c.Hub().IsOwner(c)))
				return nil
			}
			area, err := c.Hub().FindArea(arg)
			if err != nil {
				return err
			}
			return c.ChangeArea(area)
		}},
		"getarea": {fn: func(_ *Dispatcher, c *server.Client, _ string) error {
			text, err := c.AreaInfoText(c.Area().ID(), false, false)
			if err != nil {
				return err
			}
			c.SendOOC(text)
			return nil
		}},
		"getareas": {fn: func(_ *Dispatcher, c *server.Client, _ string) error {
			var parts []string
			for _, a := range c.Hub().Areas() {
				text, err := c.AreaInfoText(a.ID(), false, false)
				if err != nil {
					continue
				}
				parts = append(parts, text)
			}
			c.SendOOC(strings.Join(parts, "\r\n"))
			return nil
		}},
		"getafk": {fn: func(_ *Dispatcher, c *server.Client, _ string) error {
			text, err := c.AreaInfoText(c.Area().ID(), false, true)
			if err != nil {
				return err
			}
			c.SendOOC(text)
			return nil
		}},
		"bg": {usage: "/bg <background>", fn: func(_ *Dispatcher, c *server.Client, arg string) error {
			if arg == "" {
				return server.ArgumentErr("Use /bg <background>.")
			}
			return c.Area().ChangeBackground(arg, c)
		}},
		"status": {usage: "/status <status>", fn: func(_ *Dispatcher, c *server.Client, arg string) error {
			if arg == "" {
				return server.ArgumentErr("Use /status <idle|rp|casing|looking-for-players|recess|gaming>.")
			}
			return c.Area().ChangeStatus(arg, c)
		}},
		"desc": {fn: func(_ *Dispatcher, c *server.Client, arg string) error {
			area := c.Area()
			if arg == "" {
				desc := area.Description()
				if desc == "" {
					desc = "This area has no description."
				}
				c.SendOOC("Description: " + desc)
				return nil
			}
			if !area.IsOwner(c) && !c.IsMod() {
				return server.ClientErr("Only CMs and moderators can set the description.")
			}
			area.SetDescription(arg, c)
			return nil
		}},
		"pos": {usage: "/pos <position>", fn: func(_ *Dispatcher, c *server.Client, arg string) error {
			return c.ChangePosition(arg)
		}},
		"poslock": {fn: func(_ *Dispatcher, c *server.Client, arg string) error {
			if !c.Area().IsOwner(c) && !c.IsMod() {
				return server.ClientErr("Only CMs and moderators can lock positions.")
			}
			return c.Area().SetPosLock(strings.Fields(arg))
		}},
		"hide": {usage: "/hide <evi_name/evi_id>", fn: func(_ *Dispatcher, c *server.Client, arg string) error {
			return c.Hide(true, arg)
		}},
		"unhide": {fn: func(_ *Dispatcher, c *server.Client, _ string) error {
			return c.Hide(false, "")
		}},
		"sneak": {fn: func(_ *Dispatcher, c *server.Client, _ string) error {
			c.Sneak(true)
			return nil
		}},
		"unsneak": {fn: func(_ *Dispatcher, c *server.Client, _ string) error {
			c.Sneak(false)
			return nil
		}},
		"afk": {fn: func(_ *Dispatcher, c *server.Client, _ string) error {
			c.ToggleAFK()
			return nil
		}},
		"follow": {usage: "/follow <id>", fn: func(d *Dispatcher, c *server.Client, arg string) error {
			target, err := d.world.Registry().ResolveOne(c, server.TargetID, arg, false)
			if err != nil {
				return err
			}
			return c.Follow(target)
		}},
		"unfollow": {fn: func(_ *Dispatcher, c *server.Client, _ string) error {
			c.Unfollow(false)
			return nil
		}},
		"invite": {usage: "/invite <id or *>", fn: func(d *Dispatcher, c *server.Client, arg string) error {
			if !c.Area().IsOwner(c) && !c.IsMod() {
				return server.ClientErr("Only CMs and moderators can invite.")
			}
			if arg == "*" {
				if err := c.Area().InviteAll(); err != nil {
					return err
				}
				c.SendOOC("Everyone in the area was invited.")
				return nil
			}
			target, err := d.world.Registry().ResolveOne(c, server.TargetID, arg, false)
			if err != nil {
				return err
			}
			if err := c.Area().Invite(target.ID()); err != nil {
				return err
			}
			target.SendOOC(fmt.Sprintf("You were invited to %s.", c.Area().Name()))
			c.SendOOC(fmt.Sprintf("[%d] %s was invited.", target.ID(), target.Showname()))
			return nil
		}},
		"uninvite": {usage: "/uninvite <id or *>", fn: func(d *Dispatcher, c *server.Client, arg string) error {
			if !c.Area().IsOwner(c) && !c.IsMod() {
				return server.ClientErr("Only CMs and moderators can uninvite.")
			}
			if arg == "*" {
				if err := c.Area().ClearInvites(); err != nil {
					return err
				}
				c.SendOOC("The invite list was cleared.")
				return nil
			}
			id, err := strconv.Atoi(arg)
			if err != nil {
				return server.ArgumentErr("Use /uninvite <id or *>.")
			}
			return c.Area().Uninvite(id)
		}},
		"lock":        {fn: lockCommand(server.LockLocked)},
		"spectatable": {fn: lockCommand(server.LockSpectatable)},
		"unlock":      {fn: lockCommand(server.LockFree)},
		"maxplayers": {fn: func(_ *Dispatcher, c *server.Client, arg string) error {
			if !c.Area().IsOwner(c) && !c.IsMod() {
				return server.ClientErr("Only CMs and moderators can set the player cap.")
			}
			n, err := strconv.Atoi(arg)
			if err != nil {
				return server.ArgumentErr("Use /maxplayers <-1..99>.")
			}
			return c.Area().SetMaxPlayers(n)
		}},
		"area_kick": {usage: "/area_kick <id>", fn: func(d *Dispatcher, c *server.Client, arg string) error {
			if !c.Area().IsOwner(c) && !c.Hub().IsOwner(c) && !c.IsMod() {
				return server.ClientErr("Only CMs, GMs and moderators can kick from areas.")
			}
			target, err := d.world.Registry().ResolveOne(c, server.TargetID, arg, false)
			if err != nil {
				return err
			}
			return c.AreaKick(target, nil)
		}},
		"charselect": {fn: func(_ *Dispatcher, c *server.Client, _ string) error {
			c.CharSelect()
			return nil
		}},
		"randomchar": {fn: func(_ *Dispatcher, c *server.Client, _ string) error {
			return c.RandomCharacter()
		}},
		"charids": {fn: func(d *Dispatcher, c *server.Client, _ string) error {
			roster := d.world.Roster()
			var b strings.Builder
			b.WriteString("=== Character IDs ===")
			for id := 0; id < roster.Len(); id++ {
				fmt.Fprintf(&b, "\r\n%d: %s", id, roster.Name(id))
			}
			c.SendOOC(b.String())
			return nil
		}},
		"reload": {fn: func(_ *Dispatcher, c *server.Client, _ string) error {
			if c.CharID() == server.SpectatorCharID {
				return server.ClientErr("You are a spectator.")
			}
			if err := c.ReloadCharacter(); err != nil {
				return err
			}
			c.SendOOC("Character reloaded.")
			return nil
		}},
		"switch": {usage: "/switch <character>", fn: func(d *Dispatcher, c *server.Client, arg string) error {
			id, err := d.world.Roster().IDByName(arg)
			if err != nil {
				id, err = strconv.Atoi(arg)
				if err != nil {
					return server.ArgumentErr("No character called %s.", arg)
				}
			}
			return c.ChangeCharacter(id, false)
		}},
		"hub": {fn: func(d *Dispatcher, c *server.Client, arg string) error {
			if arg == "" {
				var b strings.Builder
				b.WriteString("=== Hubs ===")
				for _, h := range d.world.Hubs() {
					fmt.Fprintf(&b, "\r\n[%d] %s (users: %d) [GMs: %s]", h.ID(), h.Name(), h.VisibleClientCount(), h.GMNames())
				}
				c.SendOOC(b.String())
				return nil
			}
			id, err := strconv.Atoi(arg)
			if err != nil {
				return server.ArgumentErr("Use /hub <id>.")
			}
			hub, err := d.world.HubByID(id)
			if err != nil {
				return err
			}
			return c.ChangeHub(hub)
		}},
		"knock": {usage: "/knock <area id>", fn: func(_ *Dispatcher, c *server.Client, arg string) error {
			id, err := strconv.Atoi(arg)
			if err != nil {
				return server.ArgumentErr("Use /knock <area id>.")
			}
			return c.Knock(id)
		}},
		"peek": {usage: "/peek <area id>", fn: func(_ *Dispatcher, c *server.Client, arg string) error {
			id, err := strconv.Atoi(arg)
			if err != nil {
				return server.ArgumentErr("Use /peek <area id>.")
			}
			text, err := c.Peek(id)
			if err != nil {
				return err
			}
			c.SendOOC(text)
			return nil
		}},
		"cm": {fn: func(_ *Dispatcher, c *server.Client, _ string) error {
			return c.Area().AddOwner(c)
		}},
		"uncm": {fn: func(_ *Dispatcher, c *server.Client, _ string) error {
			return c.Area().RemoveOwner(c)
		}},
		"gm": {fn: func(_ *Dispatcher, c *server.Client, _ string) error {
			hub := c.Hub()
			if hub.GMNames() != "FREE" && !c.IsMod() {
				return server.ClientErr("This hub already has a GM.")
			}
			hub.AddOwner(c)
			c.SendOOC("You are now a GM of " + hub.Name() + ".")
			return nil
		}},
		"ungm": {fn: func(_ *Dispatcher, c *server.Client, _ string) error {
			if !c.Hub().IsOwner(c) {
				return server.ClientErr("You are not a GM here.")
			}
			c.Hub().RemoveOwner(c)
			c.SendOOC("You are no longer a GM.")
			return nil
		}},
		"hub_info": {fn: func(_ *Dispatcher, c *server.Client, arg string) error {
			if !c.Hub().IsOwner(c) && !c.IsMod() {
				return server.ClientErr("Only GMs and moderators can set the hub info.")
			}
			c.Hub().SetInfo(arg)
			c.SendOOC("Hub info updated.")
			return nil
		}},
		"jukebox": {fn: func(_ *Dispatcher, c *server.Client, _ string) error {
			if !c.Area().IsOwner(c) && !c.IsMod() {
				return server.ClientErr("Only CMs and moderators can toggle the jukebox.")
			}
			area := c.Area()
			on := !area.Jukebox()
			area.SetJukebox(on)
			state := "disabled"
			if on {
				state = "enabled"
			}
			area.BroadcastOOC("The jukebox was " + state + ".")
			return nil
		}},
		"jukebox_skip": {fn: func(_ *Dispatcher, c *server.Client, _ string) error {
			if !c.Area().IsOwner(c) && !c.IsMod() {
				return server.ClientErr("Only CMs and moderators can skip the jukebox.")
			}
			song, ok := c.Area().PlayJukeboxRound()
			if !ok {
				return server.ClientErr("The jukebox has no votes.")
			}
			c.SendOOC("Jukebox now playing " + song + ".")
			return nil
		}},
		"play": {usage: "/play <song>", fn: func(_ *Dispatcher, c *server.Client, arg string) error {
			if arg == "" {
				return server.ArgumentErr("Use /play <song>.")
			}
			return c.ChangeMusic(arg, 0)
		}},
		"ambience": {fn: func(_ *Dispatcher, c *server.Client, arg string) error {
			if !c.Area().IsOwner(c) && !c.IsMod() {
				return server.ClientErr("Only CMs and moderators can edit the ambience.")
			}
			on := arg != "off"
			c.SetEditAmbience(on)
			if on {
				c.SendOOC("Your next music picks set the area ambience. Use /ambience off to stop.")
			} else {
				c.SendOOC("Ambience editing disabled.")
			}
			return nil
		}},
		"musiclist": {fn: func(d *Dispatcher, c *server.Client, arg string) error {
			if arg == "" {
				c.SetPersonalMusic("", nil, false)
				c.SendOOC("Personal music list cleared.")
				return nil
			}
			if d.musicDir == "" {
				return server.ClientErr("Personal music lists are disabled on this server.")
			}
			if arg != filepath.Base(arg) {
				return server.ArgumentErr("Invalid music list name.")
			}
			list, err := server.LoadMusicList(filepath.Join(d.musicDir, arg+".yaml"))
			if err != nil {
				return err
			}
			c.SetPersonalMusic(arg, list, false)
			c.SendOOC("Personal music list set to " + arg + ".")
			return nil
		}},
		"roll": {fn: func(_ *Dispatcher, c *server.Client, arg string) error {
			count, sides := 1, 6
			if arg != "" {
				if _, err := fmt.Sscanf(arg, "%dd%d", &count, &sides); err != nil {
					if n, err2 := strconv.Atoi(arg); err2 == nil {
						count, sides = 1, n
					} else {
						return server.ArgumentErr("Use /roll [XdY].")
					}
				}
			}
			if count < 1 || count > 20 || sides < 2 || sides > 1000 {
				return server.ArgumentErr("Roll between 1d2 and 20d1000.")
			}
			rolls := make([]string, count)
			total := 0
			for i := range rolls {
				r := rand.Intn(sides) + 1
				total += r
				rolls[i] = strconv.Itoa(r)
			}
			c.Area().BroadcastOOC(fmt.Sprintf("%s rolled %dd%d: %s (total %d).", c.Showname(), count, sides, strings.Join(rolls, ", "), total))
			return nil
		}},
		"coinflip": {fn: func(_ *Dispatcher, c *server.Client, _ string) error {
			side := "heads"
			if rand.Intn(2) == 1 {
				side = "tails"
			}
			c.Area().BroadcastOOC(fmt.Sprintf("%s flipped a coin and got %s.", c.Showname(), side))
			return nil
		}},
		"pm": {usage: "/pm <id> <message>", fn: func(d *Dispatcher, c *server.Client, arg string) error {
			parts := strings.SplitN(arg, " ", 2)
			if len(parts) < 2 {
				return server.ArgumentErr("Use /pm <id> <message>.")
			}
			target, err := d.world.Registry().ResolveOne(c, server.TargetID, parts[0], false)
			if err != nil {
				return err
			}
			target.SendOOC(fmt.Sprintf("PM from [%d] %s: %s", c.ID(), c.Showname(), parts[1]))
			c.SendOOC(fmt.Sprintf("PM sent to [%d] %s.", target.ID(), target.Showname()))
			return nil
		}},
		"h": {usage: "/h <message>", fn: func(_ *Dispatcher, c *server.Client, arg string) error {
			if arg == "" {
				return server.ArgumentErr("Use /h <message>.")
			}
			if c.OOCMuted() {
				return server.ClientErr("You are OOC-muted by a moderator.")
			}
			line := fmt.Sprintf("[HUB][%d] %s: %s", c.ID(), c.Showname(), arg)
			for _, other := range c.Hub().Clients() {
				other.SendOOC(line)
			}
			return nil
		}},
		"mods": {fn: func(d *Dispatcher, c *server.Client, _ string) error {
			var names []string
			for _, other := range d.world.Registry().All() {
				if other.IsMod() {
					names = append(names, fmt.Sprintf("[%d] %s", other.ID(), other.Showname()))
				}
			}
			if len(names) == 0 {
				c.SendOOC("No moderators are online.")
				return nil
			}
			c.SendOOC("Moderators online: " + strings.Join(names, ", "))
			return nil
		}},
		"login": {usage: "/login <password>", fn: func(d *Dispatcher, c *server.Client, arg string) error {
			profile, err := c.AuthMod(arg)
			ref := logging.SessionRef(strconv.Itoa(c.ID()))
			if err != nil {
				logmod.LoginFailed(context.Background(), d.pub, ref)
				return err
			}
			logmod.Login(context.Background(), d.pub, ref, profile)
			c.SendOOC("Logged in as a moderator (" + profile + ").")
			return nil
		}},
		"save_areas": {modOnly: true, fn: func(d *Dispatcher, c *server.Client, arg string) error {
			if arg == "" {
				return server.ArgumentErr("Use /save_areas <path>.")
			}
			if err := d.world.SaveTopology(arg); err != nil {
				return err
			}
			c.SendOOC("Topology saved.")
			return nil
		}},
		"load_areas": {modOnly: true, fn: func(d *Dispatcher, c *server.Client, arg string) error {
			if arg == "" {
				return server.ArgumentErr("Use /load_areas <path>.")
			}
			topo, err := server.LoadTopology(arg)
			if err != nil {
				return err
			}
			if err := d.world.ApplyTopology(topo); err != nil {
				return err
			}
			c.SendOOC("Topology loaded.")
			return nil
		}},
		"save_data": {fn: func(_ *Dispatcher, c *server.Client, _ string) error {
			if !c.Hub().IsOwner(c) && !c.IsMod() {
				return server.ClientErr("Only GMs and moderators can save character data.")
			}
			if err := c.Hub().SaveCharacterData(); err != nil {
				return err
			}
			c.SendOOC("Character data saved.")
			return nil
		}},
		"load_data": {fn: func(_ *Dispatcher, c *server.Client, _ string) error {
			if !c.Hub().IsOwner(c) && !c.IsMod() {
				return server.ClientErr("Only GMs and moderators can load character data.")
			}
			if err := c.Hub().LoadCharacterData(); err != nil {
				return err
			}
			c.SendOOC("Character data loaded.")
			return nil
		}},
	}
	for name, cmd := range d.buildModTable() {
		t[name] = cmd
	}
	for name, cmd := range d.buildPartyTable() {
		t[name] = cmd
	}
	for name, cmd := range d.buildFriendTable() {
		t[name] = cmd
	}
	return t
}

func lockCommand(state server.LockState) func(*Dispatcher, *server.Client, string) error {
	return func(_ *Dispatcher, c *server.Client, _ string) error {
		area := c.Area()
		if !area.IsOwner(c) && !c.Hub().IsOwner(c) && !c.IsMod() {
			return server.ClientErr("Only CMs, GMs and moderators can change the area lock.")
		}
		if area.LockStateNow() == state {
			return server.ClientErr("Area is already " + strings.ToLower(state.String()) + ".")
		}
		area.SetLockState(state)
		return nil
	}
}

func sortedStrings(in []string) []string {
	out := append([]string(nil), in...)
	sort.Strings(out)
	return out
}
