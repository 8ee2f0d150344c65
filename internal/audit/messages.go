package audit

import (
	"fmt"

	"github.com/fedpact/fedpact-go/internal/events"
)

// messageFor renders the human-readable audit sentence for an event.
// It is total and pure: every input produces a deterministic sentence, and
// unknown types fall back to a generic one.
func messageFor(t events.Type, actor, target, object string) string {
	switch t {
	case events.PartnershipRequest:
		return fmt.Sprintf("%s requested a partnership with %s", actor, target)
	case events.PartnershipRequestSent:
		return fmt.Sprintf("%s sent a partnership request to %s", actor, target)
	case events.PartnershipAccepted:
		return fmt.Sprintf("%s accepted the partnership request from %s", actor, target)
	case events.PartnershipRejected:
		return fmt.Sprintf("%s rejected the partnership request from %s", actor, target)
	case events.PartnershipCancelled:
		return fmt.Sprintf("%s cancelled the partnership request to %s", actor, target)
	case events.PartnershipRemoved:
		return fmt.Sprintf("%s ended the partnership with %s", actor, target)

	case events.ContractRequest:
		return fmt.Sprintf("%s proposed the contract %s to %s", actor, object, target)
	case events.ContractAccepted:
		return fmt.Sprintf("%s accepted the contract %s", actor, object)
	case events.ContractRejected:
		return fmt.Sprintf("%s rejected the contract %s", actor, object)
	case events.ContractUpdated:
		return fmt.Sprintf("%s updated the contract %s", actor, object)
	case events.ContractDeleted:
		return fmt.Sprintf("%s deleted the contract %s", actor, object)
	case events.ContractOrgInvited:
		return fmt.Sprintf("%s invited %s to the contract %s", actor, target, object)
	case events.ContractOrgJoined:
		return fmt.Sprintf("%s joined the contract %s", actor, object)
	case events.ContractOrgLeft:
		return fmt.Sprintf("%s left the contract %s", actor, object)
	case events.ContractOrgRemoved:
		return fmt.Sprintf("%s removed %s from the contract %s", actor, target, object)

	case events.ItemShared:
		return fmt.Sprintf("%s shared the item %s in a contract with %s", actor, object, target)
	case events.ItemUnshared:
		return fmt.Sprintf("%s removed the item %s from a contract with %s", actor, object, target)
	case events.ItemEnabled:
		return fmt.Sprintf("%s enabled the item %s", actor, object)
	case events.ItemDisabled:
		return fmt.Sprintf("%s disabled the item %s", actor, object)
	case events.ItemUpdated:
		return fmt.Sprintf("%s updated the item %s", actor, object)

	case events.CompanyCreated:
		return fmt.Sprintf("%s registered the organisation %s", actor, target)
	case events.CompanyUpdated:
		return fmt.Sprintf("%s updated the organisation %s", actor, target)
	case events.CompanyDeleted:
		return fmt.Sprintf("%s deleted the organisation %s", actor, target)

	case events.NodeRegistered:
		return fmt.Sprintf("%s registered the gateway %s", actor, object)
	case events.NodeRemoved:
		return fmt.Sprintf("%s removed the gateway %s", actor, object)
	case events.NodePartnersChanged:
		return fmt.Sprintf("partner visibility changed for gateway %s of %s", object, target)

	case events.UserInvited:
		return fmt.Sprintf("%s invited the user %s", actor, target)
	case events.UserJoined:
		return fmt.Sprintf("the user %s joined %s", actor, target)
	case events.UserRemoved:
		return fmt.Sprintf("%s removed the user %s", actor, target)
	case events.UserRoleChanged:
		return fmt.Sprintf("%s changed the role of %s", actor, target)

	default:
		return fmt.Sprintf("%s performed %s on %s", actor, t, target)
	}
}
