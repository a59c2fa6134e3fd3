package bot

// Reply texts. Messages are sent with HTML parse mode.
const (
	textWelcome = "<b>Welcome to the Ocean bot!</b>\n" +
		"Check live staking pools, their APR and TVL, and track your own positions.\n\n" +
		"/oceans - list active oceans\n" +
		"/wallet - link or unlink your wallet\n" +
		"/positions - your staked amounts\n" +
		"/help - all commands"
	textHelp = "<b>Commands</b>\n" +
		"/oceans [token] - active oceans, optionally only those accepting a deposit token address\n" +
		"/o&lt;N&gt; [amount] - details of ocean N, with the APR after depositing amount\n" +
		"/wallet - link or unlink your wallet\n" +
		"/positions - your staked amounts\n" +
		"/cancel - abort the current action"
	textUnknown          = "I did not understand that, try sending command /start"
	textCancelled        = "Cancelled. Send /start to start"
	textEnterWallet      = "What's your wallet address?"
	textNoWallet         = "No wallet linked"
	textWalletInvalid    = "Wallet invalid"
	textWalletUnlinked   = "Wallet unlinked"
	textWalletUpdated    = "Wallet updated"
	textWalletLinked     = "Linked wallet: <code>%s</code>"
	textNoOceans         = "No active oceans right now."
	textOceanNotFound    = "Ocean not found. Send /oceans for the list."
	textInvalidToken     = "Invalid token address"
	textInvalidAmount    = "Invalid amount"
	textNoPositions      = "No staked positions found for <code>%s</code>"
	textFreshData        = "<b>Fresh data is in.</b>"
	textRefreshing       = "<i>Refreshing in the background, I'll send the update shortly.</i>"
	textGenericFailure   = "Something went wrong, please try again later."
	textListingDown      = "The ocean listing is unavailable right now, please try again later."
	buttonOceans         = "🌊 Oceans"
	buttonWallet         = "👛 Wallet"
	buttonPositions      = "📊 Positions"
	buttonLinkWallet     = "Link wallet"
	buttonUnlinkWallet   = "Unlink wallet"
	callbackOceans       = "oceans"
	callbackWallet       = "wallet"
	callbackWalletLink   = "wallet_link"
	callbackWalletUnlink = "wallet_unlink"
	callbackPositions    = "positions"
	callbackOceanPrefix  = "ocean:"
)
