package portal

// Element ids on the portal's Remove Member form
const (
	elementPrefix = "ctl00_ctl00_SamagraMain_ContentPlaceHolder1_"

	ElementDuplicateID       = elementPrefix + "txtDupSamagraId"
	ElementConfirmID         = elementPrefix + "txtConfirmSamagraId"
	ElementOriginalID        = elementPrefix + "txtOriSamagraId"
	ElementShowButton        = elementPrefix + "BtnShow"
	ElementConfirmOriginalID = elementPrefix + "txtConfirlOriSamagraId" // sic, portal spelling
	ElementRemark            = elementPrefix + "txtRemoveRemark"
	ElementConfirmCheckbox   = elementPrefix + "chkconfirm"
	ElementDeleteButton      = elementPrefix + "btnDelete"
)
