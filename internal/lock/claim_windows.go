package lock

// ClaimSeparator joins the fields of a claim identity. Windows rejects "|" in
// file names, so claims there use "^".
const ClaimSeparator = "^"
