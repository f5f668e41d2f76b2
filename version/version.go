package version

const Version = "0.5.0"
