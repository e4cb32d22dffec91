package domain

// Well-known namespaces. Attribute lookup is always namespace-qualified.
const (
	NamespaceTAL   = "http://xml.zope.org/namespaces/tal"
	NamespaceMETAL = "http://xml.zope.org/namespaces/metal"
	NamespaceXMLNS = "http://www.w3.org/2000/xmlns/"
	NamespaceXML   = "http://www.w3.org/XML/1998/namespace"
)

// Conventional prefixes bound to the TAL and METAL namespaces.
const (
	PrefixTAL   = "tal"
	PrefixMETAL = "metal"
)

// METAL attribute names.
const (
	MetalDefineMacro = "define-macro"
	MetalUseMacro    = "use-macro"
	MetalExtendMacro = "extend-macro"
	MetalDefineSlot  = "define-slot"
	MetalFillSlot    = "fill-slot"
)

// TAL attribute names.
const (
	TalDefine     = "define"
	TalCondition  = "condition"
	TalRepeat     = "repeat"
	TalContent    = "content"
	TalReplace    = "replace"
	TalAttributes = "attributes"
	TalOmitTag    = "omit-tag"
	TalOnError    = "on-error"
)
