package util

// util/Constants.java

/*
The index format version recorded into each segment and commit.
*/
const MAIN_VERSION = "4.9.0"
