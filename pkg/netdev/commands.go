package netdev

// 各厂商命令表共用的逻辑键
const (
	KindDelimiterUnprivileged = "delimiter_unprivileged"
	KindDelimiterPrivileged   = "delimiter_privileged"
	KindPattern               = "pattern"
	KindDisablePaging         = "disable_paging"
	KindPrivEnter             = "priv_enter"
	KindPrivExit              = "priv_exit"
	KindConfigEnter           = "config_enter"
	KindConfigExit            = "config_exit"
	KindConfigCheck           = "config_check"
	KindCheckConfigMode       = "check_config_mode"
)
