package portal

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strings"
	"time"

	"aspen/internal/domain/entity"
	"aspen/internal/domain/service"

	"github.com/pkg/errors"
)

type deviceJSON struct {
	DeviceID     string `json:"deviceId"`
	DeviceNumber string `json:"deviceNumber"`
	Model        string `json:"model"`
	SerialNumber string `json:"serialNumber"`
	Name         string `json:"name"`
}

func (d deviceJSON) toService() service.PortalDevice {
	return service.PortalDevice{
		DeviceID:     d.DeviceID,
		DeviceNumber: d.DeviceNumber,
		Model:        d.Model,
		SerialNumber: d.SerialNumber,
	}
}

type appIDJSON struct {
	AppIDID    string `json:"appIdId"`
	Name       string `json:"name"`
	Prefix     string `json:"prefix"`
	Identifier string `json:"identifier"`
}

type certJSON struct {
	CertRequestID   string `json:"certRequestId"`
	Name            string `json:"name"`
	CertificateID   string `json:"certificateId"`
	SerialNum       string `json:"serialNum"`
	ExpirationDate  string `json:"expirationDate"`
	CertificateType struct {
		PermissionType string `json:"permissionType"`
	} `json:"certificateType"`
}

type profileSummaryJSON struct {
	ProvisioningProfileID string `json:"provisioningProfileId"`
	Name                  string `json:"name"`
	DateExpire            string `json:"dateExpire"`
}

type profileJSON struct {
	ProvisioningProfileID string       `json:"provisioningProfileId"`
	DateExpire            string       `json:"dateExpire"`
	EncodedProfile        string       `json:"encodedProfile"`
	Devices               []deviceJSON `json:"devices"`
}

func (p profileJSON) toService() *service.PortalProfile {
	numbers := make([]string, 0, len(p.Devices))
	for _, device := range p.Devices {
		numbers = append(numbers, device.DeviceNumber)
	}

	return &service.PortalProfile{
		ProfileID:      p.ProvisioningProfileID,
		DeviceNumbers:  numbers,
		Expire:         parsePortalDate(p.DateExpire),
		EncodedProfile: p.EncodedProfile,
	}
}

// parsePortalDate tolerates both the zoned and the bare timestamp forms the
// portal emits; a value that parses as neither maps to the zero time, which
// downstream treats as expired.
func parsePortalDate(raw string) time.Time {
	if parsed, err := time.Parse(time.RFC3339, raw); err == nil {
		return parsed
	}
	if parsed, err := time.Parse("2006-01-02T15:04:05", raw); err == nil {
		return parsed.UTC()
	}

	return time.Time{}
}

func (c *Client) GetUserProfile(ctx context.Context, cookie string) (string, error) {
	probe := &entity.Account{Account: "(bootstrap)"}
	raw, _ := json.Marshal(map[string]string{})
	probe.Cookie = string(raw)

	var out struct {
		UserProfile struct {
			Email string `json:"email"`
		} `json:"userProfile"`
	}
	if _, err := c.do(ctx, probe, call{
		description: "resolve session owner",
		method:      http.MethodPost,
		path:        accountBase + "/getUserProfile",
		headers:     map[string]string{"Cookie": cookie},
		form:        url.Values{},
		checkResult: true,
	}, &out); err != nil {
		return "", err
	}
	if out.UserProfile.Email == "" {
		return "", errors.New("session resolved to no account email")
	}

	return strings.ToLower(out.UserProfile.Email), nil
}

func (c *Client) ValidateDevice(ctx context.Context, account *entity.Account, udid, name string) error {
	form := url.Values{}
	form.Set("teamId", account.TeamID)
	form.Set("deviceNumbers", udid)
	form.Set("register", "single")
	form.Set("name", name)
	form.Set("deviceNumber", udid)

	var out struct {
		FailedDevices []json.RawMessage `json:"failedDevices"`
	}
	if _, err := c.do(ctx, account, call{
		description: "validate device " + udid,
		method:      http.MethodPost,
		path:        accountBase + "/ios/device/validateDevices.action?teamId=",
		form:        form,
		csrf:        true,
		checkResult: true,
		dedupKey:    "validate:" + account.Account + ":" + udid,
	}, &out); err != nil {
		return err
	}
	if len(out.FailedDevices) > 0 {
		return c.remoteErr(call{description: "validate device " + udid}, account,
			errors.Errorf("%d device(s) failed validation", len(out.FailedDevices)))
	}

	return nil
}

func (c *Client) AddDevice(ctx context.Context, account *entity.Account, udid, name string) (*service.PortalDevice, error) {
	form := url.Values{}
	form.Set("teamId", account.TeamID)
	form.Set("deviceClasses", "iphone")
	form.Set("deviceNumbers", udid)
	form.Set("deviceNames", name)
	form.Set("register", "single")
	form.Set("name", name)
	form.Set("deviceNumber", udid)

	var out struct {
		Devices []deviceJSON `json:"devices"`
	}
	if _, err := c.do(ctx, account, call{
		description: "register device " + udid,
		method:      http.MethodPost,
		path:        accountBase + "/ios/device/addDevices.action?teamId=" + url.QueryEscape(account.TeamID),
		form:        form,
		csrf:        true,
		checkResult: true,
	}, &out); err != nil {
		return nil, err
	}
	for _, device := range out.Devices {
		if strings.EqualFold(device.DeviceNumber, udid) {
			result := device.toService()

			return &result, nil
		}
	}

	return nil, c.remoteErr(call{description: "register device " + udid}, account,
		errors.New("portal accepted the call but returned no matching device"))
}

func (c *Client) ListDevices(ctx context.Context, account *entity.Account) ([]service.PortalDevice, error) {
	var out struct {
		Devices []deviceJSON `json:"devices"`
	}
	if _, err := c.do(ctx, account, call{
		description: "list devices",
		method:      http.MethodPost,
		path:        accountBase + "/ios/device/listDevices.action?teamId=",
		form:        c.listForm(account),
		checkResult: true,
	}, &out); err != nil {
		return nil, err
	}

	devices := make([]service.PortalDevice, 0, len(out.Devices))
	for _, device := range out.Devices {
		devices = append(devices, device.toService())
	}

	return devices, nil
}

func (c *Client) ListBundleIDs(ctx context.Context, account *entity.Account) ([]service.PortalBundleID, error) {
	var out struct {
		AppIds []appIDJSON `json:"appIds"`
	}
	if _, err := c.do(ctx, account, call{
		description: "list app identifiers",
		method:      http.MethodPost,
		path:        accountBase + "/ios/identifiers/listAppIds.action?teamId=",
		form:        c.listForm(account),
		checkResult: true,
	}, &out); err != nil {
		return nil, err
	}

	apps := make([]service.PortalBundleID, 0, len(out.AppIds))
	for _, app := range out.AppIds {
		apps = append(apps, service.PortalBundleID{
			AppIDID:    app.AppIDID,
			Name:       app.Name,
			Prefix:     app.Prefix,
			Identifier: app.Identifier,
		})
	}

	return apps, nil
}

func (c *Client) ValidateBundleID(ctx context.Context, account *entity.Account, name, identifier string) error {
	form := url.Values{}
	form.Set("teamId", account.TeamID)
	form.Set("name", name)
	form.Set("identifier", identifier)
	form.Set("type", "explicit")

	_, err := c.do(ctx, account, call{
		description: "validate app identifier " + identifier,
		method:      http.MethodPost,
		path:        accountBase + "/ios/identifiers/validateAppId.action?teamId=",
		form:        form,
		csrf:        true,
		checkResult: true,
		dedupKey:    "validate-app:" + account.Account + ":" + identifier,
	}, nil)

	return err
}

func (c *Client) RegisterBundleID(ctx context.Context, account *entity.Account, name, identifier string, capabilities []string) error {
	body, err := json.Marshal(bundleIDRequest(account.TeamID, name, identifier, capabilities))
	if err != nil {
		return errors.Wrap(err, "encode bundle id request")
	}

	_, err = c.do(ctx, account, call{
		description:  "register app identifier " + identifier,
		method:       http.MethodPost,
		path:         bundleIDsPath,
		jsonBody:     body,
		csrf:         true,
		expectStatus: http.StatusCreated,
	}, nil)

	return err
}

// bundleIDRequest builds the JSON:API payload of the newer bundle-id
// endpoint. Every requested capability rides along as an enabled setting.
func bundleIDRequest(teamID, name, identifier string, capabilities []string) map[string]any {
	caps := make([]map[string]any, 0, len(capabilities))
	for _, capability := range capabilities {
		caps = append(caps, map[string]any{
			"type": "capabilities",
			"id":   capability,
			"attributes": map[string]any{
				"enabled":  true,
				"settings": []any{},
			},
		})
	}

	return map[string]any{
		"data": map[string]any{
			"type": "bundleIds",
			"attributes": map[string]any{
				"name":                 name,
				"identifier":           identifier,
				"platform":             "IOS",
				"seedId":               teamID,
				"teamId":               teamID,
				"bundleIdCapabilities": caps,
			},
		},
	}
}

func (c *Client) ListCertificates(ctx context.Context, account *entity.Account) ([]service.PortalCertificate, error) {
	form := c.listForm(account)
	form.Set("types", "")

	var out struct {
		CertRequests []certJSON `json:"certRequests"`
	}
	if _, err := c.do(ctx, account, call{
		description: "list certificates",
		method:      http.MethodPost,
		path:        accountBase + "/ios/certificate/listCertRequests.action?teamId=",
		form:        form,
		checkResult: true,
	}, &out); err != nil {
		return nil, err
	}

	certs := make([]service.PortalCertificate, 0, len(out.CertRequests))
	for _, cert := range out.CertRequests {
		certs = append(certs, service.PortalCertificate{
			CertRequestID: cert.CertRequestID,
			Name:          cert.Name,
			CertificateID: cert.CertificateID,
			SerialNumber:  cert.SerialNum,
			TypeString:    strings.ToLower(cert.CertificateType.PermissionType),
			Expire:        parsePortalDate(cert.ExpirationDate),
		})
	}

	return certs, nil
}

func (c *Client) ListProfiles(ctx context.Context, account *entity.Account) ([]service.PortalProfileSummary, error) {
	form := c.listForm(account)
	form.Set("includeInactiveProfiles", "true")

	var out struct {
		ProvisioningProfiles []profileSummaryJSON `json:"provisioningProfiles"`
	}
	if _, err := c.do(ctx, account, call{
		description: "list provisioning profiles",
		method:      http.MethodPost,
		path:        accountBase + "/ios/profile/listProvisioningProfiles.action?teamId=",
		form:        form,
		checkResult: true,
	}, &out); err != nil {
		return nil, err
	}

	profiles := make([]service.PortalProfileSummary, 0, len(out.ProvisioningProfiles))
	for _, profile := range out.ProvisioningProfiles {
		profiles = append(profiles, service.PortalProfileSummary{
			ProfileID: profile.ProvisioningProfileID,
			Name:      profile.Name,
			Expire:    parsePortalDate(profile.DateExpire),
		})
	}

	return profiles, nil
}

func (c *Client) GetProfileDetail(ctx context.Context, account *entity.Account, profileID string) (*service.PortalProfile, error) {
	form := url.Values{}
	form.Set("teamId", account.TeamID)
	form.Set("provisioningProfileId", profileID)
	form.Set("includeInactiveProfiles", "true")

	var out struct {
		ProvisioningProfile profileJSON `json:"provisioningProfile"`
	}
	if _, err := c.do(ctx, account, call{
		description: "profile detail " + profileID,
		method:      http.MethodPost,
		path:        accountBase + "/ios/profile/getProvisioningProfile.action?teamId=",
		form:        form,
		checkResult: true,
	}, &out); err != nil {
		return nil, err
	}

	return out.ProvisioningProfile.toService(), nil
}

func (c *Client) DownloadProfile(ctx context.Context, account *entity.Account, profileID string) ([]byte, error) {
	query := url.Values{}
	query.Set("teamId", account.TeamID)
	query.Set("displayId", profileID)

	body, err := c.do(ctx, account, call{
		description: "download profile " + profileID,
		method:      http.MethodGet,
		path:        accountBase + "/ios/profile/downloadProfileContent?" + query.Encode(),
		binary:      true,
	}, nil)
	if err != nil {
		return nil, err
	}
	if len(body) == 0 {
		return nil, c.remoteErr(call{description: "download profile " + profileID}, account,
			errors.New("empty profile payload"))
	}

	return body, nil
}

func (c *Client) RegenProfile(ctx context.Context, account *entity.Account, profileID string, spec service.ProfileSpec) (*service.PortalProfile, error) {
	form := c.profileForm(account, spec)
	form.Set("provisioningProfileId", profileID)

	var out struct {
		ProvisioningProfile profileJSON `json:"provisioningProfile"`
	}
	if _, err := c.do(ctx, account, call{
		description: "regenerate profile " + profileID,
		method:      http.MethodPost,
		path:        accountBase + "/ios/profile/regenProvisioningProfile.action?teamId=",
		form:        form,
		csrf:        true,
		checkResult: true,
	}, &out); err != nil {
		return nil, err
	}

	return out.ProvisioningProfile.toService(), nil
}

func (c *Client) CreateProfile(ctx context.Context, account *entity.Account, spec service.ProfileSpec) (*service.PortalProfile, error) {
	form := c.profileForm(account, spec)

	var out struct {
		ProvisioningProfile profileJSON `json:"provisioningProfile"`
	}
	if _, err := c.do(ctx, account, call{
		description: "create profile " + spec.Name,
		method:      http.MethodPost,
		path:        accountBase + "/ios/profile/createProvisioningProfile.action?teamId=",
		form:        form,
		csrf:        true,
		checkResult: true,
	}, &out); err != nil {
		return nil, err
	}

	return out.ProvisioningProfile.toService(), nil
}

func (c *Client) profileForm(account *entity.Account, spec service.ProfileSpec) url.Values {
	form := url.Values{}
	form.Set("teamId", account.TeamID)
	form.Set("provisioningProfileName", spec.Name)
	form.Set("appIdId", spec.AppIDID)
	form.Set("appIdName", spec.AppIDName)
	form.Set("appIdPrefix", spec.AppIDPrefix)
	form.Set("appIdIdentifier", spec.AppIDIdentifier)
	form.Set("distributionType", "limited")
	form.Set("certificateIds", spec.CertReqID)
	for _, deviceID := range spec.DeviceIDs {
		form.Add("deviceIds", deviceID)
	}

	return form
}

var _ service.PortalGateway = (*Client)(nil)
