package server

// Wire command names understood by AO-family clients. The core only ever
// emits these through a Transport; framing and encoding live in the network
// layer.
const (
	CmdOOC          = "CT"         // server/ooc chat line
	CmdAreaList     = "FA"         // visible area list
	CmdMusicList    = "FM"         // music list
	CmdPlayMusic    = "MC"         // play a track
	CmdHP           = "HP"         // penalty bar value
	CmdBackground   = "BN"         // area background + pos
	CmdEvidenceList = "LE"         // evidence visible to the session
	CmdSetPosition  = "SP"         // set the session's position
	CmdPosDropdown  = "SD"         // available positions
	CmdCharSelected = "PV"         // character slot acknowledgement
	CmdCharsCheck   = "CharsCheck" // roster availability mask
	CmdARUP         = "ARUP"       // hub roster facet
	CmdMusicMode    = "MM"
	CmdDone         = "DONE"
	CmdICMessage    = "MS"    // in-character chat line
	CmdWTCE         = "RT"    // witness-testimony / cross-examination splash
	CmdBanned       = "BD"    // admission refused
	CmdKicked       = "KK"    // kicked off the server
	CmdServerInfo   = "SI"    // roster/evidence/music counts
	CmdCharList     = "SC"    // character roster
	CmdMusicCatalog = "SM"    // startup music catalog
	CmdPlayerCount  = "PN"    // occupancy
	CmdKeepalive    = "CHECK" // keepalive reply
	CmdModAlert     = "ZZ"    // modcall relay
)

// ARUP facet discriminators; each facet is sent as its own message.
const (
	ARUPPlayers = 0
	ARUPStatus  = 1
	ARUPOwners  = 2
	ARUPLocks   = 3
)

// Transport is the outbound boundary to one connected client. Send must
// never block: implementations enqueue onto the session's own write path
// and drop or disconnect on overflow. The core never formats raw bytes.
type Transport interface {
	Send(name string, args ...string)
	Close()
}

// nopTransport backs sessions whose connection is already gone.
type nopTransport struct{}

func (nopTransport) Send(string, ...string) {}
func (nopTransport) Close()                 {}
