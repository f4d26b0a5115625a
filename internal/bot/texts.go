package bot

// Reply keyboard labels. The router matches them exactly.
const (
	BtnAdminMode  = "👨‍💻 Admin mode"
	BtnNormalMode = "🔙 Normal mode"
	BtnStats      = "📊 Statistics"
	BtnBroadcast  = "📢 Broadcast"
	BtnUsers      = "👥 Users"
	BtnTop        = "🏆 Top 20"
	BtnHelp       = "ℹ️ Help"

	BtnCheckSubscription      = "✅ Check"
	CallbackCheckSubscription = "check_subscription"
)

const (
	textAdminWelcome = "🔥 Hello, Admin!\n\n" +
		"Welcome to the YouTube video downloader bot.\n" +
		"Send a YouTube link and I will download the video for you."
	textWelcome = "🔥 Hello!\n\n" +
		"Welcome to the YouTube video downloader bot.\n" +
		"Send a YouTube link and I will download the video for you."
	textHelp = "🤖 <b>YouTube Video Downloader Bot</b>\n\n" +
		"📝 <b>How to use:</b>\n" +
		"1. Send a YouTube video link\n" +
		"2. The bot downloads the video\n" +
		"3. The bot sends it back to you\n\n" +
		"⚠️ <b>Limits:</b>\n" +
		"• Max size: %d MB\n" +
		"• YouTube only\n" +
		"• Channel subscription required"

	textSubscribe        = "🔒 To use the bot, please subscribe to the channels below:"
	textSubscribed       = "✅ Subscription confirmed!\n\nNow send a YouTube link and I will download the video for you."
	textNotSubscribed    = "❌ You have not subscribed to all channels yet!\nPlease subscribe first."
	textNoAdminRights    = "❌ You do not have admin rights!"
	textAdminModeOn      = "👨‍💻 Admin mode enabled!"
	textNormalMode       = "🔙 Normal mode"
	textInvalidURL       = "❌ Please send a valid YouTube link!"
	textProbing          = "⏳ Fetching video info..."
	textDownloading      = "📥 Downloading video..."
	textUploading        = "📤 Sending video..."
	textTooLarge         = "❌ The video is larger than %d MB! Please choose a smaller one."
	textSizeUnknown      = "❌ Could not determine the video size, so it cannot be downloaded."
	textAdminError       = "❌ Something went wrong, please try again later."
	textDownloadFailed   = "❌ An error occurred while downloading the video!"
	textUnknownTitle     = "Unknown video"
	textNoStats          = "📊 No statistics yet!"
	textBroadcastPrompt  = "📢 Write the message you want to send to all users:"
	textBroadcastSending = "📢 Sending the message..."
	textBroadcastDone    = "📊 Broadcast finished!\n\n✅ Sent: %d\n❌ Failed: %d"
	textCancelled        = "✔️ Cancelled."
	textNoUsername       = "no username"
)
