package commands

import (
	"strconv"

	server "courtmux/server"
)

// buildFriendTable exposes the friends system: /friend doubles as
// "send request" and "accept pending request".
func (d *Dispatcher) buildFriendTable() map[string]oocCommand {
	return map[string]oocCommand{
		"friend": {usage: "/friend <id>", fn: func(d *Dispatcher, c *server.Client, arg string) error {
			id, err := strconv.Atoi(arg)
			if err != nil {
				return server.ArgumentErr("Use /friend <id>.")
			}
			if aerr := c.AcceptFriendRequest(id); aerr == nil {
				return nil
			}
			target, rerr := d.world.Registry().ResolveOne(c, server.TargetID, arg, false)
			if rerr != nil {
				return rerr
			}
			return c.SendFriendRequest(target)
		}},
		"unfriend": {usage: "/unfriend <id>", fn: func(d *Dispatcher, c *server.Client, arg string) error {
			id, err := strconv.Atoi(arg)
			if err != nil {
				return server.ArgumentErr("Use /unfriend <id>.")
			}
			if derr := c.DeclineFriendRequest(id); derr == nil {
				c.SendOOC("Friend request declined.")
				return nil
			}
			target, rerr := d.world.Registry().ResolveOne(c, server.TargetID, arg, false)
			if rerr != nil {
				return rerr
			}
			return c.RemoveFriend(target)
		}},
		"friends": {fn: func(_ *Dispatcher, c *server.Client, _ string) error {
			c.SendOOC(c.FriendListText())
			return nil
		}},
	}
}
