// Package businessflow contains the business logic for the application.
package businessflow

import (
	"context"

	"github.com/videostreampro/adcore/models"
	"github.com/videostreampro/adcore/repository"
)

// ClientMetadata holds all client-related information for audit logging and session tracking
type ClientMetadata struct {
	IPAddress  string            `json:"ip_address"`
	UserAgent  string            `json:"user_agent"`
	DeviceInfo map[string]string `json:"device_info,omitempty"`
	Location   *LocationInfo     `json:"location,omitempty"`
	RequestID  string            `json:"request_id,omitempty"`
	SessionID  string            `json:"session_id,omitempty"`
	Additional map[string]string `json:"additional,omitempty"`
}

// LocationInfo holds geographical location information
type LocationInfo struct {
	Country   string `json:"country,omitempty"`
	Region    string `json:"region,omitempty"`
	City      string `json:"city,omitempty"`
	Latitude  string `json:"latitude,omitempty"`
	Longitude string `json:"longitude,omitempty"`
}

// NewClientMetadata creates a new ClientMetadata instance with basic information
func NewClientMetadata(ipAddress, userAgent string) *ClientMetadata {
	return &ClientMetadata{
		IPAddress:  ipAddress,
		UserAgent:  userAgent,
		DeviceInfo: make(map[string]string),
		Additional: make(map[string]string),
	}
}

// AddDeviceInfo adds device information to the metadata
func (cm *ClientMetadata) AddDeviceInfo(key, value string) {
	if cm.DeviceInfo == nil {
		cm.DeviceInfo = make(map[string]string)
	}
	cm.DeviceInfo[key] = value
}

// AddAdditional adds additional custom information to the metadata
func (cm *ClientMetadata) AddAdditional(key, value string) {
	if cm.Additional == nil {
		cm.Additional = make(map[string]string)
	}
	cm.Additional[key] = value
}

// SetLocation sets location information
func (cm *ClientMetadata) SetLocation(location *LocationInfo) {
	cm.Location = location
}

// SetRequestID sets the request ID
func (cm *ClientMetadata) SetRequestID(requestID string) {
	cm.RequestID = requestID
}

// SetSessionID sets the session ID
func (cm *ClientMetadata) SetSessionID(sessionID string) {
	cm.SessionID = sessionID
}

// getUser fetches a user by ID, failing if it does not exist.
func getUser(ctx context.Context, userRepo repository.UserRepository, userID uint) (models.User, error) {
	user, err := userRepo.ByID(ctx, userID)
	if err != nil {
		return models.User{}, err
	}
	if user == nil {
		return models.User{}, ErrUserNotFound
	}
	return *user, nil
}

// getTeam fetches a team by ID, failing if it does not exist.
func getTeam(ctx context.Context, teamRepo repository.TeamRepository, teamID uint) (models.Team, error) {
	team, err := teamRepo.ByID(ctx, teamID)
	if err != nil {
		return models.Team{}, err
	}
	if team == nil {
		return models.Team{}, ErrTeamNotFound
	}
	return *team, nil
}

// getCampaign fetches a campaign by UUID and verifies it belongs to teamID.
func getCampaign(ctx context.Context, campaignRepo repository.CampaignRepository, campaignUUID string, teamID uint) (models.Campaign, error) {
	campaign, err := campaignRepo.ByUUID(ctx, campaignUUID)
	if err != nil {
		return models.Campaign{}, err
	}
	if campaign == nil {
		return models.Campaign{}, ErrCampaignNotFound
	}
	if campaign.TeamID != teamID {
		return models.Campaign{}, ErrCampaignAccessDenied
	}
	return *campaign, nil
}

// getAd fetches an ad by UUID and verifies the parent campaign belongs to teamID.
func getAd(ctx context.Context, adRepo repository.AdRepository, campaignRepo repository.CampaignRepository, adUUID string, teamID uint) (models.Ad, error) {
	ad, err := adRepo.ByUUID(ctx, adUUID)
	if err != nil {
		return models.Ad{}, err
	}
	if ad == nil {
		return models.Ad{}, ErrAdNotFound
	}
	campaign, err := campaignRepo.ByID(ctx, ad.CampaignID)
	if err != nil {
		return models.Ad{}, err
	}
	if campaign == nil || campaign.TeamID != teamID {
		return models.Ad{}, ErrAdAccessDenied
	}
	return *ad, nil
}

// canUpdateCampaign reports whether a campaign in the given status accepts
// edits to its fields. Completed and cancelled campaigns are terminal.
func canUpdateCampaign(status models.CampaignStatus) bool {
	return status == models.CampaignStatusDraft ||
		status == models.CampaignStatusActive ||
		status == models.CampaignStatusPaused
}

// canUpdateAd reports whether an ad in the given status accepts edits.
func canUpdateAd(status models.AdStatus) bool {
	return status == models.AdStatusDraft ||
		status == models.AdStatusUnderReview ||
		status == models.AdStatusActive ||
		status == models.AdStatusPaused
}

// getWallet fetches the wallet owned by ownerID (a team owner's user ID),
// failing if none exists yet.
func getWallet(ctx context.Context, walletRepo repository.WalletRepository, ownerID uint) (models.Wallet, error) {
	wallet, err := walletRepo.ByOwnerID(ctx, ownerID)
	if err != nil {
		return models.Wallet{}, err
	}
	if wallet == nil {
		return models.Wallet{}, ErrWalletNotFound
	}
	return *wallet, nil
}

// createWallet opens a new zero-balance wallet for ownerID (a team owner's
// user ID), lazily provisioned the first time one is needed (e.g. on
// campaign creation).
func createWallet(ctx context.Context, walletRepo repository.WalletRepository, ownerID uint) (models.Wallet, error) {
	wallet := models.Wallet{OwnerID: ownerID}
	if err := walletRepo.Save(ctx, &wallet); err != nil {
		return models.Wallet{}, err
	}
	return wallet, nil
}

// getOrCreateWallet returns the wallet owned by ownerID (a team owner's
// user ID), creating one on first use.
func getOrCreateWallet(ctx context.Context, walletRepo repository.WalletRepository, ownerID uint) (models.Wallet, error) {
	wallet, err := getWallet(ctx, walletRepo, ownerID)
	if err == nil {
		return wallet, nil
	}
	if !IsWalletNotFound(err) {
		return models.Wallet{}, err
	}
	return createWallet(ctx, walletRepo, ownerID)
}

// teamOwnerID resolves the user ID that owns a team's wallet (spec §3:
// wallets belong to users; a team's budget operations move funds through
// its owner's wallet).
func teamOwnerID(ctx context.Context, teamRepo repository.TeamRepository, teamID uint) (uint, error) {
	team, err := getTeam(ctx, teamRepo, teamID)
	if err != nil {
		return 0, err
	}
	return team.OwnerUserID, nil
}
