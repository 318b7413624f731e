package jukebox

const (
	helpRule = " ===  ===  ===  ===  ===  ===  === \n"

	publicHelp = "Current commands!\n" + helpRule +
		"`add` _text_ : Add song to the queue and start playing if idle. Will start with a fresh queue.\n" +
		"`current` : list current track\n" +
		"`search` _text_ : search for a track, does NOT add it to the queue\n" +
		"`list` : list current queue\n" +
		"`upnext` : list the recent and upcoming tracks\n" +
		"`help` : show this message\n"

	adminHelp = "------ ADMIN FUNCTIONS ------\n" +
		"`flush` : flush the current queue\n" +
		"`play` : play track\n" +
		"`stop` : stop life\n" +
		"`pause` : pause life\n" +
		"`resume` : resume after pause\n" +
		"`next` : play next track\n" +
		"`previous` : play previous track\n" +
		"`remove` _number_ : remove the track with that number from the queue\n" +
		"`blacklist` : show users on blacklist\n" +
		"`blacklist add @username` : add `@username` to the blacklist\n" +
		"`blacklist del @username` : remove `@username` from the blacklist\n"
)

// HelpText lists the public commands, plus the admin ones when asked from the
// admin channel.
func HelpText(admin bool) string {
	msg := publicHelp
	if admin {
		msg += adminHelp
	}
	return msg + helpRule
}
