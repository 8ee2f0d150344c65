// Package events defines the cross-organisation event vocabulary shared by
// the notification mailbox and the audit trail.
package events

// Type identifies the kind of cross-organisation event. Types are grouped by
// the domain they describe: item, user, node, company, partnership, contract.
type Type string

const (
	// Partnership lifecycle. RequestSent is the informational copy kept in
	// the sender's own mailbox; Request is the open question in the
	// receiver's.
	PartnershipRequestSent Type = "partnershipRequestSent"

	PartnershipRequest   Type = "partnershipRequest"
	PartnershipAccepted  Type = "partnershipAccepted"
	PartnershipRejected  Type = "partnershipRejected"
	PartnershipCancelled Type = "partnershipCancelled"
	PartnershipRemoved   Type = "partnershipRemoved"

	// Contract lifecycle
	ContractRequest       Type = "contractRequest"
	ContractAccepted      Type = "contractAccepted"
	ContractRejected      Type = "contractRejected"
	ContractUpdated       Type = "contractUpdated"
	ContractDeleted       Type = "contractDeleted"
	ContractOrgInvited    Type = "contractOrganisationInvited"
	ContractOrgJoined     Type = "contractOrganisationJoined"
	ContractOrgLeft       Type = "contractOrganisationLeft"
	ContractOrgRemoved    Type = "contractOrganisationRemoved"

	// Item grants
	ItemShared   Type = "itemShared"
	ItemUnshared Type = "itemUnshared"
	ItemEnabled  Type = "itemEnabled"
	ItemDisabled Type = "itemDisabled"
	ItemUpdated  Type = "itemUpdated"

	// Company (organisation record) administration
	CompanyCreated Type = "companyCreated"
	CompanyUpdated Type = "companyUpdated"
	CompanyDeleted Type = "companyDeleted"

	// Gateway nodes
	NodeRegistered      Type = "nodeRegistered"
	NodeRemoved         Type = "nodeRemoved"
	NodePartnersChanged Type = "nodePartnersChanged"

	// Users
	UserInvited     Type = "userInvited"
	UserJoined      Type = "userJoined"
	UserRemoved     Type = "userRemoved"
	UserRoleChanged Type = "userRoleChanged"
)

// requestTypes are the event types that open a response lifecycle: the
// notification created for them starts WAITING and is later RESPONDED.
var requestTypes = map[Type]bool{
	PartnershipRequest: true,
	ContractRequest:    true,
	ContractOrgInvited: true,
	UserInvited:        true,
}

// IsRequest reports whether t opens a response lifecycle.
func IsRequest(t Type) bool {
	return requestTypes[t]
}
