package types

type Department struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	Desc      string `json:"desc"`
	AddTime   string `json:"add_time"`
	Flag      int    `json:"flag"`
	RawStatus string `json:"status"`
}

type User struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	Email    string `json:"email"`
	LoginID  string `json:"login_id"`
	Location string `json:"location"`
	DeptList string `json:"dept_list"` // JSON-encoded [{id,name}] as sent by upstream
	Avatar   string `json:"avatar,omitempty"`
}

type Role struct {
	ID      int64  `json:"id"`
	Name    string `json:"name"`
	Desc    string `json:"desc"`
	AddTime string `json:"add_time"`
	Flag    int    `json:"flag"`
}

// Func is a permission entry: a menu, button or other guarded resource.
type Func struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	Flag     int    `json:"flag"`
	ResURI   string `json:"res_uri"`
	PermCode string `json:"perm_code"`
	Type     string `json:"type"` // "menu", "button", "other"
	Group    string `json:"group"`
}

type Tenant struct {
	ID       int64  `json:"id"`
	UniqueID string `json:"unique_id"`
	Name     string `json:"name"`
	Desc     string `json:"desc"`
	AddTime  string `json:"add_time"`
	Version  string `json:"version"`
	CallBack string `json:"call_back"`
	Flag     int    `json:"flag"`
}

type TenantAPICredentials struct {
	AppID  string `json:"app_id"`
	AppKey string `json:"app_key"`
}

// PayrollSettings is the active chain/token selection for disbursement.
type PayrollSettings struct {
	Chain       string `json:"chain"`
	PayContract string `json:"pay_contract"`
	PayToken    string `json:"pay_token"`
}

// SettingsCatalog is the full settings payload: the active selection plus
// the configured chain -> token symbol -> contract address matrix.
type SettingsCatalog struct {
	ConfigMap       map[string]map[string]string `json:"config_map"`
	PayrollSettings PayrollSettings              `json:"payroll_settings"`
}
